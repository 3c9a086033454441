package plan

import (
	"context"
	"reflect"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	extensionspb "github.com/substrait-io/substrait-protobuf/go/substraitpb/extensions"

	"github.com/hugr-lab/pushdown-go/errs"
	"github.com/hugr-lab/pushdown-go/expr"
)

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func fieldRef(index int32) *substraitpb.Expression {
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_Selection{
			Selection: &substraitpb.Expression_FieldReference{
				ReferenceType: &substraitpb.Expression_FieldReference_DirectReference{
					DirectReference: &substraitpb.Expression_ReferenceSegment{
						ReferenceType: &substraitpb.Expression_ReferenceSegment_StructField_{
							StructField: &substraitpb.Expression_ReferenceSegment_StructField{Field: index},
						},
					},
				},
				RootType: &substraitpb.Expression_FieldReference_RootReference_{
					RootReference: &substraitpb.Expression_FieldReference_RootReference{},
				},
			},
		},
	}
}

func i32Literal(v int32) *substraitpb.Expression {
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_Literal_{
			Literal: &substraitpb.Expression_Literal{
				LiteralType: &substraitpb.Expression_Literal_I32{I32: v},
			},
		},
	}
}

func scalarFn(anchor uint32, args ...*substraitpb.Expression) *substraitpb.Expression {
	wireArgs := make([]*substraitpb.FunctionArgument, len(args))
	for i, arg := range args {
		wireArgs[i] = &substraitpb.FunctionArgument{
			ArgType: &substraitpb.FunctionArgument_Value{Value: arg},
		}
	}
	return &substraitpb.Expression{
		RexType: &substraitpb.Expression_ScalarFunction_{
			ScalarFunction: &substraitpb.Expression_ScalarFunction{
				FunctionReference: anchor,
				Arguments:         wireArgs,
			},
		},
	}
}

func singleRelationPlan(table string, schema *substraitpb.NamedStruct, decls []*extensionspb.SimpleExtensionDeclaration, exprs ...*substraitpb.Expression) *substraitpb.Plan {
	return &substraitpb.Plan{
		Extensions: decls,
		Relations: []*substraitpb.PlanRel{{
			RelType: &substraitpb.PlanRel_Root{
				Root: &substraitpb.RelRoot{
					Input: &substraitpb.Rel{
						RelType: &substraitpb.Rel_Project{
							Project: &substraitpb.ProjectRel{
								Input: &substraitpb.Rel{
									RelType: &substraitpb.Rel_Read{
										Read: &substraitpb.ReadRel{
											BaseSchema: schema,
											ReadType: &substraitpb.ReadRel_NamedTable_{
												NamedTable: &substraitpb.ReadRel_NamedTable{Names: []string{table}},
											},
										},
									},
								},
								Expressions: exprs,
							},
						},
					},
				},
			},
		}},
	}
}

func ltDecls() []*extensionspb.SimpleExtensionDeclaration {
	return []*extensionspb.SimpleExtensionDeclaration{{
		MappingType: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction_{
			ExtensionFunction: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction{
				FunctionAnchor: 1,
				Name:           "lt:any_any",
			},
		},
	}}
}

func TestRegisterEmptyTable(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}

	tests := []struct {
		name   string
		table  string
		schema *arrow.Schema
	}{
		{name: "empty name", table: "", schema: testSchema()},
		{name: "nil schema", table: "u", schema: nil},
		{name: "duplicate", table: "t", schema: testSchema()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.RegisterEmptyTable(tt.table, tt.schema)
			if err == nil {
				t.Fatal("RegisterEmptyTable() should fail")
			}
			if errs.KindOf(err) != errs.KindInvalidInput {
				t.Errorf("kind = %v, want KindInvalidInput", errs.KindOf(err))
			}
		})
	}
}

func TestFromPlanQualifiesColumns(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}

	p := singleRelationPlan("t", nil, ltDecls(), scalarFn(1, fieldRef(0), i32Literal(5)))
	out, err := s.FromPlan(context.Background(), p)
	if err != nil {
		t.Fatalf("FromPlan() error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("FromPlan() returned %d expressions, want 1", len(out))
	}

	want := &expr.Comparison{
		Op:    expr.CompareLess,
		Left:  &expr.Column{Relation: "t", Name: "x"},
		Right: &expr.Literal{Value: int32(5), Type: arrow.PrimitiveTypes.Int32},
	}
	if !reflect.DeepEqual(out[0], want) {
		t.Errorf("FromPlan() = %s, want %s", out[0], want)
	}
}

func TestFromPlanShapeErrors(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}

	tests := []struct {
		name string
		plan *substraitpb.Plan
		kind errs.Kind
	}{
		{name: "nil plan", plan: nil, kind: errs.KindInvalidInput},
		{name: "no relations", plan: &substraitpb.Plan{}, kind: errs.KindPlan},
		{
			name: "two relations",
			plan: &substraitpb.Plan{Relations: []*substraitpb.PlanRel{{}, {}}},
			kind: errs.KindPlan,
		},
		{
			name: "not a root",
			plan: &substraitpb.Plan{Relations: []*substraitpb.PlanRel{{
				RelType: &substraitpb.PlanRel_Rel{Rel: &substraitpb.Rel{}},
			}}},
			kind: errs.KindPlan,
		},
		{
			name: "root without project",
			plan: &substraitpb.Plan{Relations: []*substraitpb.PlanRel{{
				RelType: &substraitpb.PlanRel_Root{Root: &substraitpb.RelRoot{
					Input: &substraitpb.Rel{RelType: &substraitpb.Rel_Read{Read: &substraitpb.ReadRel{}}},
				}},
			}}},
			kind: errs.KindPlan,
		},
		{
			name: "unregistered table",
			plan: singleRelationPlan("missing", nil, nil, i32Literal(1)),
			kind: errs.KindPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.FromPlan(context.Background(), tt.plan)
			if err == nil {
				t.Fatal("FromPlan() should fail")
			}
			if errs.KindOf(err) != tt.kind {
				t.Errorf("kind = %v, want %v", errs.KindOf(err), tt.kind)
			}
		})
	}
}

func TestFromPlanCanceledContext(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FromPlan(ctx, singleRelationPlan("t", nil, nil, i32Literal(1)))
	if err == nil {
		t.Fatal("FromPlan() should fail on a canceled context")
	}
	if errs.KindOf(err) != errs.KindPlan {
		t.Errorf("kind = %v, want KindPlan", errs.KindOf(err))
	}
}

func TestFromPlanUndeclaredFunctionAnchor(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}

	p := singleRelationPlan("t", nil, nil, scalarFn(9, fieldRef(0), i32Literal(5)))
	_, err := s.FromPlan(context.Background(), p)
	if err == nil {
		t.Fatal("FromPlan() should fail on an undeclared function anchor")
	}
	if errs.KindOf(err) != errs.KindPlan {
		t.Errorf("kind = %v, want KindPlan", errs.KindOf(err))
	}
}

func TestFromPlanFieldIndexOutOfRange(t *testing.T) {
	s := NewSession()
	if err := s.RegisterEmptyTable("t", testSchema()); err != nil {
		t.Fatalf("RegisterEmptyTable() error: %v", err)
	}

	p := singleRelationPlan("t", nil, nil, fieldRef(7))
	_, err := s.FromPlan(context.Background(), p)
	if err == nil {
		t.Fatal("FromPlan() should fail on an out of range field index")
	}
	if errs.KindOf(err) != errs.KindPlan {
		t.Errorf("kind = %v, want KindPlan", errs.KindOf(err))
	}
}

func TestToExtendedExpressionEnvelope(t *testing.T) {
	e := &expr.Comparison{
		Op:    expr.CompareLess,
		Left:  &expr.Column{Name: "x"},
		Right: &expr.Literal{Value: int32(0), Type: arrow.PrimitiveTypes.Int32},
	}
	output := arrow.Field{Name: "output", Type: arrow.FixedWidthTypes.Boolean, Nullable: true}

	extended, err := ToExtendedExpression(e, output, testSchema())
	if err != nil {
		t.Fatalf("ToExtendedExpression() error: %v", err)
	}

	if got := len(extended.GetReferredExpr()); got != 1 {
		t.Fatalf("referred expression count = %d, want 1", got)
	}
	ref := extended.GetReferredExpr()[0]
	if got := ref.GetOutputNames(); len(got) != 1 || got[0] != "output" {
		t.Errorf("output names = %v, want [output]", got)
	}
	if ref.GetExpression() == nil {
		t.Error("referred expression must be a scalar expression")
	}

	if got := extended.GetBaseSchema().GetNames(); len(got) != 2 || got[0] != "x" || got[1] != "name" {
		t.Errorf("base schema names = %v, want [x name]", got)
	}

	decls := extended.GetExtensions()
	if len(decls) != 1 {
		t.Fatalf("extension declaration count = %d, want 1", len(decls))
	}
	fn := decls[0].GetExtensionFunction()
	if fn == nil {
		t.Fatal("declaration must be a function extension")
	}
	if fn.GetName() != "lt:any_any" {
		t.Errorf("declared name = %q, want lt:any_any", fn.GetName())
	}
	if len(extended.GetExtensionUris()) != 1 {
		t.Fatalf("extension URI count = %d, want 1", len(extended.GetExtensionUris()))
	}
	if got := extended.GetExtensionUris()[0].GetUri(); got != uriComparison {
		t.Errorf("declared URI = %q, want %q", got, uriComparison)
	}
	if extended.GetVersion().GetProducer() != producerName {
		t.Errorf("producer = %q, want %q", extended.GetVersion().GetProducer(), producerName)
	}
}

func TestProducerReusesAnchors(t *testing.T) {
	// The same function used twice must be declared once.
	e := &expr.Conjunction{Op: expr.ConjunctionAnd, Children: []expr.Expression{
		&expr.Comparison{
			Op:    expr.CompareLess,
			Left:  &expr.Column{Name: "x"},
			Right: &expr.Literal{Value: int32(0), Type: arrow.PrimitiveTypes.Int32},
		},
		&expr.Comparison{
			Op:    expr.CompareLess,
			Left:  &expr.Column{Name: "x"},
			Right: &expr.Literal{Value: int32(10), Type: arrow.PrimitiveTypes.Int32},
		},
	}}
	output := arrow.Field{Name: "output", Type: arrow.FixedWidthTypes.Boolean, Nullable: true}

	extended, err := ToExtendedExpression(e, output, testSchema())
	if err != nil {
		t.Fatalf("ToExtendedExpression() error: %v", err)
	}

	// One declaration for and:any_any, one for lt:any_any.
	if got := len(extended.GetExtensions()); got != 2 {
		t.Errorf("extension declaration count = %d, want 2", got)
	}
	// Boolean and comparison URIs.
	if got := len(extended.GetExtensionUris()); got != 2 {
		t.Errorf("extension URI count = %d, want 2", got)
	}
}

func TestCompoundNames(t *testing.T) {
	tests := []struct {
		name  string
		arity int
		want  string
	}{
		{name: "lt", arity: 2, want: "lt:any_any"},
		{name: "not", arity: 1, want: "not:any"},
		{name: "now", arity: 0, want: "now:"},
	}
	for _, tt := range tests {
		if got := compoundName(tt.name, tt.arity); got != tt.want {
			t.Errorf("compoundName(%q, %d) = %q, want %q", tt.name, tt.arity, got, tt.want)
		}
	}

	if got := baseName("lt:any_any"); got != "lt" {
		t.Errorf("baseName(lt:any_any) = %q, want lt", got)
	}
	if got := baseName("lt"); got != "lt" {
		t.Errorf("baseName(lt) = %q, want lt", got)
	}
}

func TestFunctionURIRouting(t *testing.T) {
	tests := []struct {
		fn   string
		want string
	}{
		{fn: "and", want: uriBoolean},
		{fn: "not", want: uriBoolean},
		{fn: "lt", want: uriComparison},
		{fn: "is_null", want: uriComparison},
		{fn: "regexp_match", want: uriCustom},
	}
	for _, tt := range tests {
		if got := functionURI(tt.fn); got != tt.want {
			t.Errorf("functionURI(%q) = %q, want %q", tt.fn, got, tt.want)
		}
	}
}
