package plan

import (
	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	extensionspb "github.com/substrait-io/substrait-protobuf/go/substraitpb/extensions"

	"github.com/hugr-lab/pushdown-go/errs"
	"github.com/hugr-lab/pushdown-go/expr"
)

// producerName identifies this module in emitted messages.
const producerName = "pushdown-go"

// ToExtendedExpression produces a Substrait ExtendedExpression message
// carrying a single referred expression. The schema must contain every field
// the expression references; extra fields are allowed as long as their types
// are representable.
func ToExtendedExpression(e expr.Expression, output arrow.Field, schema *arrow.Schema) (*substraitpb.ExtendedExpression, error) {
	baseSchema, err := ToNamedStruct(schema)
	if err != nil {
		return nil, err
	}

	p := &producer{
		schema:  schema,
		uris:    make(map[string]uint32),
		anchors: make(map[string]uint32),
	}
	wireExpr, err := p.convert(e)
	if err != nil {
		return nil, err
	}

	return &substraitpb.ExtendedExpression{
		Version:       &substraitpb.Version{MinorNumber: 63, Producer: producerName},
		ExtensionUris: p.extensionURIs,
		Extensions:    p.declarations,
		ReferredExpr: []*substraitpb.ExpressionReference{{
			ExprType:    &substraitpb.ExpressionReference_Expression{Expression: wireExpr},
			OutputNames: []string{output.Name},
		}},
		BaseSchema: baseSchema,
	}, nil
}

type producer struct {
	schema *arrow.Schema

	uris    map[string]uint32 // extension URI -> anchor
	anchors map[string]uint32 // compound function name -> anchor

	extensionURIs []*extensionspb.SimpleExtensionURI
	declarations  []*extensionspb.SimpleExtensionDeclaration
}

// functionAnchor returns the anchor for a function, declaring the extension
// on first use.
func (p *producer) functionAnchor(name string, arity int) uint32 {
	compound := compoundName(name, arity)
	if anchor, ok := p.anchors[compound]; ok {
		return anchor
	}

	uri := functionURI(name)
	uriAnchor, ok := p.uris[uri]
	if !ok {
		uriAnchor = uint32(len(p.extensionURIs) + 1)
		p.uris[uri] = uriAnchor
		p.extensionURIs = append(p.extensionURIs, &extensionspb.SimpleExtensionURI{
			ExtensionUriAnchor: uriAnchor,
			Uri:                uri,
		})
	}

	anchor := uint32(len(p.declarations) + 1)
	p.anchors[compound] = anchor
	p.declarations = append(p.declarations, &extensionspb.SimpleExtensionDeclaration{
		MappingType: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction_{
			ExtensionFunction: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction{
				ExtensionUriReference: uriAnchor,
				FunctionAnchor:        anchor,
				Name:                  compound,
			},
		},
	})
	return anchor
}

func (p *producer) convert(e expr.Expression) (*substraitpb.Expression, error) {
	switch node := e.(type) {
	case *expr.Literal:
		lit, err := toSubstraitLiteral(node)
		if err != nil {
			return nil, err
		}
		return &substraitpb.Expression{
			RexType: &substraitpb.Expression_Literal_{Literal: lit},
		}, nil
	case *expr.Column:
		return p.convertColumn(node)
	case *expr.Comparison:
		return p.scalarFunction(compareFunctions[node.Op], arrow.FixedWidthTypes.Boolean, node.Left, node.Right)
	case *expr.Conjunction:
		name := fnAnd
		if node.Op == expr.ConjunctionOr {
			name = fnOr
		}
		return p.scalarFunction(name, arrow.FixedWidthTypes.Boolean, node.Children...)
	case *expr.Not:
		return p.scalarFunction(fnNot, arrow.FixedWidthTypes.Boolean, node.Input)
	case *expr.IsNull:
		name := fnIsNull
		if node.Negated {
			name = fnIsNotNull
		}
		return p.scalarFunction(name, arrow.FixedWidthTypes.Boolean, node.Input)
	case *expr.Cast:
		return p.convertCast(node)
	case *expr.InList:
		return p.convertInList(node)
	case *expr.Case:
		return p.convertCase(node)
	case *expr.Function:
		return p.scalarFunctionTyped(node.Name, node.Return, node.Args...)
	default:
		return nil, errs.Internalf("unhandled expression kind %T", e)
	}
}

func (p *producer) convertColumn(col *expr.Column) (*substraitpb.Expression, error) {
	indices := p.schema.FieldIndices(col.Name)
	if len(indices) == 0 {
		return nil, errs.InvalidInputf("column %q not found in schema", col.Name)
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_Selection{
			Selection: &substraitpb.Expression_FieldReference{
				ReferenceType: &substraitpb.Expression_FieldReference_DirectReference{
					DirectReference: &substraitpb.Expression_ReferenceSegment{
						ReferenceType: &substraitpb.Expression_ReferenceSegment_StructField_{
							StructField: &substraitpb.Expression_ReferenceSegment_StructField{
								Field: int32(indices[0]),
							},
						},
					},
				},
				RootType: &substraitpb.Expression_FieldReference_RootReference_{
					RootReference: &substraitpb.Expression_FieldReference_RootReference{},
				},
			},
		},
	}, nil
}

func (p *producer) scalarFunction(name string, ret arrow.DataType, args ...expr.Expression) (*substraitpb.Expression, error) {
	return p.scalarFunctionTyped(name, ret, args...)
}

func (p *producer) scalarFunctionTyped(name string, ret arrow.DataType, args ...expr.Expression) (*substraitpb.Expression, error) {
	wireArgs := make([]*substraitpb.FunctionArgument, len(args))
	for i, arg := range args {
		converted, err := p.convert(arg)
		if err != nil {
			return nil, err
		}
		wireArgs[i] = &substraitpb.FunctionArgument{
			ArgType: &substraitpb.FunctionArgument_Value{Value: converted},
		}
	}

	fn := &substraitpb.Expression_ScalarFunction{
		FunctionReference: p.functionAnchor(name, len(args)),
		Arguments:         wireArgs,
	}
	if ret != nil {
		outputType, err := ToSubstraitType(ret, true)
		if err != nil {
			return nil, err
		}
		fn.OutputType = outputType
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_ScalarFunction_{ScalarFunction: fn},
	}, nil
}

func (p *producer) convertCast(cast *expr.Cast) (*substraitpb.Expression, error) {
	input, err := p.convert(cast.Input)
	if err != nil {
		return nil, err
	}
	to, err := ToSubstraitType(cast.To, true)
	if err != nil {
		return nil, err
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_Cast_{
			Cast: &substraitpb.Expression_Cast{
				Type:            to,
				Input:           input,
				FailureBehavior: substraitpb.Expression_Cast_FAILURE_BEHAVIOR_THROW_EXCEPTION,
			},
		},
	}, nil
}

func (p *producer) convertInList(inList *expr.InList) (*substraitpb.Expression, error) {
	value, err := p.convert(inList.Value)
	if err != nil {
		return nil, err
	}
	options := make([]*substraitpb.Expression, len(inList.Options))
	for i, opt := range inList.Options {
		converted, err := p.convert(opt)
		if err != nil {
			return nil, err
		}
		options[i] = converted
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_SingularOrList_{
			SingularOrList: &substraitpb.Expression_SingularOrList{
				Value:   value,
				Options: options,
			},
		},
	}, nil
}

func (p *producer) convertCase(caseExpr *expr.Case) (*substraitpb.Expression, error) {
	if caseExpr.Else == nil {
		return nil, errs.InvalidInput("case expression requires an else branch")
	}
	ifs := make([]*substraitpb.Expression_IfThen_IfClause, len(caseExpr.Checks))
	for i, check := range caseExpr.Checks {
		when, err := p.convert(check.When)
		if err != nil {
			return nil, err
		}
		then, err := p.convert(check.Then)
		if err != nil {
			return nil, err
		}
		ifs[i] = &substraitpb.Expression_IfThen_IfClause{If: when, Then: then}
	}
	elseExpr, err := p.convert(caseExpr.Else)
	if err != nil {
		return nil, err
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_IfThen_{
			IfThen: &substraitpb.Expression_IfThen{Ifs: ifs, Else: elseExpr},
		},
	}, nil
}
