package pushdown

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/pushdown-go/errs"
	"github.com/hugr-lab/pushdown-go/expr"
	"github.com/hugr-lab/pushdown-go/plan"
)

// dummyTableName is the relation name the synthetic single-table plan is
// addressed at. It exists only for the duration of one DecodeExpr call.
const dummyTableName = "dummy"

// EncodeExpr converts a native expression into a Substrait ExtendedExpression
// message and returns its bytes.
//
// The schema needs to contain all of the fields that are referenced in the
// expression. It is ok if the schema has more fields than are required,
// but every field type must be representable in Substrait; remove
// unrepresentable fields from the schema before calling.
func EncodeExpr(e expr.Expression, schema *arrow.Schema) ([]byte, error) {
	outputType, err := expr.OutputType(e, schema)
	if err != nil {
		return nil, err
	}
	// Nullability doesn't matter for the output field.
	output := arrow.Field{Name: "output", Type: outputType, Nullable: true}

	extended, err := plan.ToExtendedExpression(e, output, schema)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(extended)
	if err != nil {
		return nil, errs.FromCodec(err)
	}
	return data, nil
}

// DecodeExpr converts a Substrait ExtendedExpression message into a native
// expression evaluated against schema.
//
// The message must contain exactly one referred expression, and it must be a
// plain scalar expression. If the embedded base schema carries fields the
// native representation cannot handle (placeholder-named or user defined
// type fields), they are stripped and every field reference in the
// expression tree is renumbered to match the reduced schema before plan
// conversion.
func DecodeExpr(ctx context.Context, data []byte, schema *arrow.Schema) (expr.Expression, error) {
	var envelope substraitpb.ExtendedExpression
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return nil, errs.FromCodec(err)
	}

	if len(envelope.GetReferredExpr()) == 0 {
		return nil, errs.InvalidInput("the provided substrait expression is empty (contains no expressions)")
	}
	if len(envelope.GetReferredExpr()) > 1 {
		return nil, errs.InvalidInputf(
			"the provided substrait expression had %d expressions when only 1 was expected",
			len(envelope.GetReferredExpr()))
	}
	var wireExpr *substraitpb.Expression
	switch exprType := envelope.GetReferredExpr()[0].GetExprType().(type) {
	case nil:
		return nil, errs.InvalidInput("the provided substrait had an expression but was missing an expr_type")
	case *substraitpb.ExpressionReference_Expression:
		wireExpr = exprType.Expression
	default:
		return nil, errs.InvalidInput("the provided substrait was not a scalar expression")
	}
	if envelope.GetBaseSchema() == nil {
		return nil, errs.InvalidInput("the provided substrait is missing a base schema")
	}

	substraitSchema := envelope.GetBaseSchema()
	inputSchema := schema
	if envelope.GetBaseSchema().GetStruct() != nil {
		reduced, reducedArrow, indexMapping, err := reconcileSchema(envelope.GetBaseSchema(), schema)
		if err != nil {
			return nil, err
		}
		if len(reduced.GetStruct().GetTypes()) != len(envelope.GetBaseSchema().GetStruct().GetTypes()) {
			if err := remapExprReferences(wireExpr, indexMapping); err != nil {
				return nil, err
			}
			slog.Debug("reconciliation dropped unsupported schema fields",
				"before", len(envelope.GetBaseSchema().GetStruct().GetTypes()),
				"after", len(reduced.GetStruct().GetTypes()))
		}
		substraitSchema, inputSchema = reduced, reducedArrow
	}

	// The plan consumer only understands Plan (not ExtendedExpression), so
	// wrap the expression in a dummy plan with a single project node.
	syntheticPlan := &substraitpb.Plan{
		Extensions:         keepFunctionExtensions(envelope.GetExtensions()),
		AdvancedExtensions: envelope.GetAdvancedExtensions(),
		Relations: []*substraitpb.PlanRel{{
			RelType: &substraitpb.PlanRel_Root{
				Root: &substraitpb.RelRoot{
					Input: &substraitpb.Rel{
						RelType: &substraitpb.Rel_Project{
							Project: &substraitpb.ProjectRel{
								Input: &substraitpb.Rel{
									RelType: &substraitpb.Rel_Read{
										Read: &substraitpb.ReadRel{
											BaseSchema: substraitSchema,
											ReadType: &substraitpb.ReadRel_NamedTable_{
												NamedTable: &substraitpb.ReadRel_NamedTable{
													Names: []string{dummyTableName},
												},
											},
										},
									},
								},
								Expressions: []*substraitpb.Expression{wireExpr},
							},
						},
					},
				},
			},
		}},
	}

	session := plan.NewSession()
	if err := session.RegisterEmptyTable(dummyTableName, inputSchema); err != nil {
		return nil, err
	}
	expressions, err := session.FromPlan(ctx, syntheticPlan)
	if err != nil {
		return nil, err
	}
	if len(expressions) == 0 {
		return nil, errs.Internal("planner returned no expressions for the synthetic plan")
	}
	native := expressions[len(expressions)-1]

	// Plan conversion qualifies column references into the dummy table
	// (dummy.x < 0 instead of x < 0). Callers want unqualified references,
	// so strip the qualifier in a final transformation pass.
	return stripDummyQualifier(native)
}

func stripDummyQualifier(e expr.Expression) (expr.Expression, error) {
	return expr.Transform(e, func(node expr.Expression) (expr.Expression, error) {
		column, ok := node.(*expr.Column)
		if !ok || column.Relation == "" {
			return node, nil
		}
		if column.Relation != dummyTableName {
			// The dummy table is the only relation registered, so any other
			// qualifier means the plan conversion went wrong.
			return nil, errs.Internalf("unexpected reference to table %s found when parsing filter", column.Relation)
		}
		return &expr.Column{Name: column.Name}, nil
	})
}
