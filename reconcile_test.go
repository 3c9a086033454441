package pushdown

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	extensionspb "github.com/substrait-io/substrait-protobuf/go/substraitpb/extensions"

	"github.com/hugr-lab/pushdown-go/errs"
)

func i32Type() *substraitpb.Type {
	return &substraitpb.Type{Kind: &substraitpb.Type_I32_{I32: &substraitpb.Type_I32{
		Nullability: substraitpb.Type_NULLABILITY_NULLABLE,
	}}}
}

func stringType() *substraitpb.Type {
	return &substraitpb.Type{Kind: &substraitpb.Type_String_{String_: &substraitpb.Type_String{
		Nullability: substraitpb.Type_NULLABILITY_NULLABLE,
	}}}
}

func structType(children ...*substraitpb.Type) *substraitpb.Type {
	return &substraitpb.Type{Kind: &substraitpb.Type_Struct_{Struct: &substraitpb.Type_Struct{
		Types:       children,
		Nullability: substraitpb.Type_NULLABILITY_NULLABLE,
	}}}
}

func userDefinedType() *substraitpb.Type {
	return &substraitpb.Type{Kind: &substraitpb.Type_UserDefined_{UserDefined: &substraitpb.Type_UserDefined{
		TypeReference: 1,
	}}}
}

func namedStruct(names []string, types ...*substraitpb.Type) *substraitpb.NamedStruct {
	return &substraitpb.NamedStruct{
		Names: names,
		Struct: &substraitpb.Type_Struct{
			Types:       types,
			Nullability: substraitpb.Type_NULLABILITY_REQUIRED,
		},
	}
}

func TestCountFlattenedFields(t *testing.T) {
	tests := []struct {
		name string
		typ  *substraitpb.Type
		want int
	}{
		{name: "leaf", typ: i32Type(), want: 1},
		{name: "flat struct", typ: structType(i32Type(), stringType()), want: 3},
		{name: "nested struct", typ: structType(structType(i32Type()), stringType()), want: 4},
		{name: "empty struct", typ: structType(), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countFlattenedFields(tt.typ); got != tt.want {
				t.Errorf("countFlattenedFields() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReconcileSchemaDropsPlaceholder(t *testing.T) {
	substraitSchema := namedStruct(
		[]string{placeholderPrefix + "_0", "x"},
		i32Type(), i32Type(),
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: placeholderPrefix + "_0", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)

	reduced, reducedArrow, mapping, err := reconcileSchema(substraitSchema, schema)
	if err != nil {
		t.Fatalf("reconcileSchema() error: %v", err)
	}

	if got := len(reduced.GetStruct().GetTypes()); got != 1 {
		t.Errorf("reduced substrait field count = %d, want 1", got)
	}
	if got := reduced.GetNames(); len(got) != 1 || got[0] != "x" {
		t.Errorf("reduced names = %v, want [x]", got)
	}
	if reducedArrow.NumFields() != 1 || reducedArrow.Field(0).Name != "x" {
		t.Errorf("reduced arrow schema = %v, want single field x", reducedArrow)
	}
	if len(mapping) != 1 || mapping[1] != 0 {
		t.Errorf("index mapping = %v, want {1:0}", mapping)
	}
}

func TestReconcileSchemaDropsUserDefined(t *testing.T) {
	substraitSchema := namedStruct(
		[]string{"vector", "x"},
		userDefinedType(), i32Type(),
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "vector", Type: arrow.BinaryTypes.Binary, Nullable: true},
		{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)

	reduced, _, mapping, err := reconcileSchema(substraitSchema, schema)
	if err != nil {
		t.Fatalf("reconcileSchema() error: %v", err)
	}
	if got := reduced.GetNames(); len(got) != 1 || got[0] != "x" {
		t.Errorf("reduced names = %v, want [x]", got)
	}
	if len(mapping) != 1 || mapping[1] != 0 {
		t.Errorf("index mapping = %v, want {1:0}", mapping)
	}
}

func TestReconcileSchemaNestedSpans(t *testing.T) {
	// a: struct{b, c} occupies flattened slots 0..2, the placeholder slot 3,
	// d slot 4. Dropping the placeholder shifts d to slot 3.
	substraitSchema := namedStruct(
		[]string{"a", "b", "c", placeholderPrefix + "_1", "d"},
		structType(i32Type(), stringType()), i32Type(), i32Type(),
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.StructOf(
			arrow.Field{Name: "b", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			arrow.Field{Name: "c", Type: arrow.BinaryTypes.String, Nullable: true},
		), Nullable: true},
		{Name: placeholderPrefix + "_1", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "d", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)

	reduced, reducedArrow, mapping, err := reconcileSchema(substraitSchema, schema)
	if err != nil {
		t.Fatalf("reconcileSchema() error: %v", err)
	}

	wantMapping := map[int]int{0: 0, 1: 1, 2: 2, 4: 3}
	if len(mapping) != len(wantMapping) {
		t.Fatalf("index mapping = %v, want %v", mapping, wantMapping)
	}
	for old, want := range wantMapping {
		if got, ok := mapping[old]; !ok || got != want {
			t.Errorf("mapping[%d] = %d (present=%v), want %d", old, got, ok, want)
		}
	}
	if _, ok := mapping[3]; ok {
		t.Error("dropped field index 3 must not be present in the mapping")
	}

	wantNames := []string{"a", "b", "c", "d"}
	gotNames := reduced.GetNames()
	if len(gotNames) != len(wantNames) {
		t.Fatalf("reduced names = %v, want %v", gotNames, wantNames)
	}
	for i, want := range wantNames {
		if gotNames[i] != want {
			t.Errorf("reduced names[%d] = %q, want %q", i, gotNames[i], want)
		}
	}

	// Size invariant: names track the flattened span of kept fields, arrow
	// fields track the kept top-level fields.
	if len(gotNames) != len(mapping) {
		t.Errorf("len(names) = %d, want len(mapping) = %d", len(gotNames), len(mapping))
	}
	if reducedArrow.NumFields() != 2 {
		t.Errorf("reduced arrow field count = %d, want 2", reducedArrow.NumFields())
	}
	if got := len(reduced.GetStruct().GetTypes()); got != 2 {
		t.Errorf("reduced substrait field count = %d, want 2", got)
	}
}

func TestReconcileSchemaCountMismatch(t *testing.T) {
	substraitSchema := namedStruct([]string{"x"}, i32Type())
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "y", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)

	_, _, _, err := reconcileSchema(substraitSchema, schema)
	if err == nil {
		t.Fatal("reconcileSchema() should fail on field count mismatch")
	}
	if errs.KindOf(err) != errs.KindSchemaMismatch {
		t.Errorf("kind = %v, want KindSchemaMismatch", errs.KindOf(err))
	}
}

func TestReconcileSchemaKeepsEverything(t *testing.T) {
	substraitSchema := namedStruct([]string{"x", "y"}, i32Type(), stringType())
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "y", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	reduced, _, mapping, err := reconcileSchema(substraitSchema, schema)
	if err != nil {
		t.Fatalf("reconcileSchema() error: %v", err)
	}
	if got := len(reduced.GetStruct().GetTypes()); got != 2 {
		t.Errorf("reduced field count = %d, want 2", got)
	}
	for i := 0; i < 2; i++ {
		if mapping[i] != i {
			t.Errorf("mapping[%d] = %d, want identity", i, mapping[i])
		}
	}
}

func TestKeepFunctionExtensions(t *testing.T) {
	decls := []*extensionspb.SimpleExtensionDeclaration{
		{MappingType: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction_{
			ExtensionFunction: &extensionspb.SimpleExtensionDeclaration_ExtensionFunction{
				FunctionAnchor: 1,
				Name:           "lt:any_any",
			},
		}},
		{MappingType: &extensionspb.SimpleExtensionDeclaration_ExtensionType_{
			ExtensionType: &extensionspb.SimpleExtensionDeclaration_ExtensionType{
				TypeAnchor: 1,
				Name:       "vector",
			},
		}},
	}

	kept := keepFunctionExtensions(decls)
	if len(kept) != 1 {
		t.Fatalf("kept %d declarations, want 1", len(kept))
	}
	if kept[0].GetExtensionFunction() == nil {
		t.Error("kept declaration must be the function extension")
	}
}
