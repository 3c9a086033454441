package expr

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/pushdown-go/errs"
)

// OutputType infers the Arrow result type of an expression evaluated against
// schema. Columns resolve by name against the schema (the qualifier, if any,
// is ignored since only one input relation exists during conversion).
func OutputType(e Expression, schema *arrow.Schema) (arrow.DataType, error) {
	switch node := e.(type) {
	case *Column:
		indices := schema.FieldIndices(node.Name)
		if len(indices) == 0 {
			return nil, errs.InvalidInputf("column %q not found in schema", node.Name)
		}
		return schema.Field(indices[0]).Type, nil
	case *Literal:
		if node.Type == nil {
			return nil, errs.InvalidInput("literal is missing its type")
		}
		return node.Type, nil
	case *Comparison, *Conjunction, *Not, *IsNull, *InList:
		return arrow.FixedWidthTypes.Boolean, nil
	case *Cast:
		if node.To == nil {
			return nil, errs.InvalidInput("cast is missing its target type")
		}
		return node.To, nil
	case *Case:
		if len(node.Checks) == 0 {
			if node.Else == nil {
				return nil, errs.InvalidInput("case expression has no branches")
			}
			return OutputType(node.Else, schema)
		}
		return OutputType(node.Checks[0].Then, schema)
	case *Function:
		if node.Return == nil {
			return nil, errs.InvalidInputf("cannot infer output type of function %q without a declared return type", node.Name)
		}
		return node.Return, nil
	default:
		return nil, errs.Internalf("unhandled expression kind %T", e)
	}
}
