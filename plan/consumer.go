package plan

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	extensionspb "github.com/substrait-io/substrait-protobuf/go/substraitpb/extensions"

	"github.com/hugr-lab/pushdown-go/errs"
	"github.com/hugr-lab/pushdown-go/expr"
)

// FromPlan converts a single-relation Substrait plan into the native
// expressions projected by its root. The plan must have exactly one relation
// shaped Root -> Project -> Read over a named table registered on the
// session. Column references are returned qualified with the table name.
func (s *Session) FromPlan(ctx context.Context, p *substraitpb.Plan) ([]expr.Expression, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindPlan, "plan conversion canceled", err)
	}
	if p == nil {
		return nil, errs.InvalidInput("plan cannot be nil")
	}
	if len(p.GetRelations()) != 1 {
		return nil, errs.Newf(errs.KindPlan, "expected exactly 1 relation in the plan, got %d", len(p.GetRelations()))
	}
	root := p.GetRelations()[0].GetRoot()
	if root == nil {
		return nil, errs.New(errs.KindPlan, "plan relation must be a root relation")
	}
	project := root.GetInput().GetProject()
	if project == nil {
		return nil, errs.New(errs.KindPlan, "root input must be a project relation")
	}
	read := project.GetInput().GetRead()
	if read == nil {
		return nil, errs.New(errs.KindPlan, "project input must be a read relation")
	}
	named := read.GetNamedTable()
	if named == nil || len(named.GetNames()) == 0 {
		return nil, errs.New(errs.KindPlan, "only named table reads are supported")
	}
	table := named.GetNames()[0]
	schema, ok := s.lookupTable(table)
	if !ok {
		return nil, errs.Newf(errs.KindPlan, "table %q is not registered", table)
	}

	conv := &converter{
		table:     table,
		schema:    schema,
		functions: functionRegistry(p.GetExtensions()),
	}
	out := make([]expr.Expression, len(project.GetExpressions()))
	for i, wireExpr := range project.GetExpressions() {
		native, err := conv.convert(wireExpr)
		if err != nil {
			return nil, err
		}
		out[i] = native
	}
	return out, nil
}

// functionRegistry maps function anchors to base function names, ignoring
// type and type-variation declarations.
func functionRegistry(decls []*extensionspb.SimpleExtensionDeclaration) map[uint32]string {
	registry := make(map[uint32]string, len(decls))
	for _, decl := range decls {
		fn := decl.GetExtensionFunction()
		if fn == nil {
			continue
		}
		registry[fn.GetFunctionAnchor()] = baseName(fn.GetName())
	}
	return registry
}

type converter struct {
	table     string
	schema    *arrow.Schema
	functions map[uint32]string
}

func (c *converter) convert(e *substraitpb.Expression) (expr.Expression, error) {
	if e == nil || e.GetRexType() == nil {
		return nil, errs.InvalidInput("expression is missing its rex_type")
	}
	switch node := e.GetRexType().(type) {
	case *substraitpb.Expression_Literal_:
		return fromSubstraitLiteral(node.Literal)
	case *substraitpb.Expression_Selection:
		return c.convertSelection(node.Selection)
	case *substraitpb.Expression_ScalarFunction_:
		return c.convertScalarFunction(node.ScalarFunction)
	case *substraitpb.Expression_IfThen_:
		return c.convertIfThen(node.IfThen)
	case *substraitpb.Expression_Cast_:
		return c.convertCast(node.Cast)
	case *substraitpb.Expression_SingularOrList_:
		return c.convertSingularOrList(node.SingularOrList)
	default:
		return nil, errs.Newf(errs.KindUnsupported, "expression kind %T is not supported by this planner", node)
	}
}

func (c *converter) convertSelection(sel *substraitpb.Expression_FieldReference) (expr.Expression, error) {
	if sel == nil {
		return nil, errs.InvalidInput("field reference is missing")
	}
	switch sel.GetRootType().(type) {
	case *substraitpb.Expression_FieldReference_RootReference_:
		// references the read relation's schema
	case nil:
		return nil, errs.InvalidInput("field reference is missing its root type")
	default:
		return nil, errs.Unsupported("only root input field references are supported by this planner")
	}
	direct := sel.GetDirectReference()
	if direct == nil {
		return nil, errs.Unsupported("masked field references are not supported by this planner")
	}
	structField := direct.GetStructField()
	if structField == nil {
		return nil, errs.Unsupported("list and map references are not supported by this planner")
	}
	if structField.GetChild() != nil {
		return nil, errs.Unsupported("nested struct field references are not supported by this planner")
	}
	idx := int(structField.GetField())
	if idx < 0 || idx >= c.schema.NumFields() {
		return nil, errs.Newf(errs.KindPlan, "field index %d is out of range for table %q with %d fields", idx, c.table, c.schema.NumFields())
	}
	return &expr.Column{Relation: c.table, Name: c.schema.Field(idx).Name}, nil
}

func (c *converter) convertScalarFunction(fn *substraitpb.Expression_ScalarFunction) (expr.Expression, error) {
	if fn == nil {
		return nil, errs.InvalidInput("scalar function is missing")
	}
	name, ok := c.functions[fn.GetFunctionReference()]
	if !ok {
		return nil, errs.Newf(errs.KindPlan, "scalar function anchor %d has no extension declaration", fn.GetFunctionReference())
	}

	args := make([]expr.Expression, 0, len(fn.GetArguments()))
	for _, arg := range fn.GetArguments() {
		value := arg.GetValue()
		if value == nil {
			return nil, errs.Newf(errs.KindUnsupported, "enum and type arguments of %q are not supported by this planner", name)
		}
		converted, err := c.convert(value)
		if err != nil {
			return nil, err
		}
		args = append(args, converted)
	}

	if op, ok := compareOps[name]; ok {
		if len(args) != 2 {
			return nil, errs.Newf(errs.KindPlan, "comparison %q expects 2 arguments, got %d", name, len(args))
		}
		return &expr.Comparison{Op: op, Left: args[0], Right: args[1]}, nil
	}
	switch name {
	case fnAnd:
		return &expr.Conjunction{Op: expr.ConjunctionAnd, Children: args}, nil
	case fnOr:
		return &expr.Conjunction{Op: expr.ConjunctionOr, Children: args}, nil
	case fnNot:
		if len(args) != 1 {
			return nil, errs.Newf(errs.KindPlan, "not expects 1 argument, got %d", len(args))
		}
		return &expr.Not{Input: args[0]}, nil
	case fnIsNull, fnIsNotNull:
		if len(args) != 1 {
			return nil, errs.Newf(errs.KindPlan, "%s expects 1 argument, got %d", name, len(args))
		}
		return &expr.IsNull{Input: args[0], Negated: name == fnIsNotNull}, nil
	}

	fnExpr := &expr.Function{Name: name, Args: args}
	if fn.GetOutputType() != nil {
		ret, _, err := FromSubstraitType(fn.GetOutputType())
		if err != nil {
			return nil, err
		}
		fnExpr.Return = ret
	}
	return fnExpr, nil
}

func (c *converter) convertIfThen(ifThen *substraitpb.Expression_IfThen) (expr.Expression, error) {
	if ifThen == nil {
		return nil, errs.InvalidInput("if_then expression is missing")
	}
	checks := make([]expr.CaseCheck, len(ifThen.GetIfs()))
	for i, clause := range ifThen.GetIfs() {
		when, err := c.convert(clause.GetIf())
		if err != nil {
			return nil, err
		}
		then, err := c.convert(clause.GetThen())
		if err != nil {
			return nil, err
		}
		checks[i] = expr.CaseCheck{When: when, Then: then}
	}
	elseExpr, err := c.convert(ifThen.GetElse())
	if err != nil {
		return nil, err
	}
	return &expr.Case{Checks: checks, Else: elseExpr}, nil
}

func (c *converter) convertCast(cast *substraitpb.Expression_Cast) (expr.Expression, error) {
	if cast == nil {
		return nil, errs.InvalidInput("cast expression is missing")
	}
	input, err := c.convert(cast.GetInput())
	if err != nil {
		return nil, err
	}
	to, _, err := FromSubstraitType(cast.GetType())
	if err != nil {
		return nil, err
	}
	return &expr.Cast{Input: input, To: to}, nil
}

func (c *converter) convertSingularOrList(orList *substraitpb.Expression_SingularOrList) (expr.Expression, error) {
	if orList == nil {
		return nil, errs.InvalidInput("singular_or_list expression is missing")
	}
	value, err := c.convert(orList.GetValue())
	if err != nil {
		return nil, err
	}
	options := make([]expr.Expression, len(orList.GetOptions()))
	for i, opt := range orList.GetOptions() {
		converted, err := c.convert(opt)
		if err != nil {
			return nil, err
		}
		options[i] = converted
	}
	return &expr.InList{Value: value, Options: options}, nil
}
