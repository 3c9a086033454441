package pushdown

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"
	extensionspb "github.com/substrait-io/substrait-protobuf/go/substraitpb/extensions"

	"github.com/hugr-lab/pushdown-go/errs"
)

// placeholderPrefix marks schema fields emitted as placeholders for types the
// native representation cannot carry. Fields whose name starts with this
// prefix are dropped during reconciliation.
const placeholderPrefix = "__unlikely_name_placeholder"

// countFlattenedFields returns the number of flattened name slots a type node
// occupies: 1 for a leaf, 1 plus all descendants for a struct.
func countFlattenedFields(t *substraitpb.Type) int {
	if st, ok := t.GetKind().(*substraitpb.Type_Struct_); ok {
		n := 1
		for _, child := range st.Struct.GetTypes() {
			n += countFlattenedFields(child)
		}
		return n
	}
	return 1
}

// reconcileSchema removes top-level fields the native representation cannot
// carry (placeholder-named fields and user defined types) from a Substrait
// schema paired with its Arrow counterpart. It returns the reduced Substrait
// schema, the reduced Arrow schema, and a map from old flattened field index
// to new flattened field index covering exactly the retained fields.
//
// Known gap: user defined fields nested inside a retained struct field are
// not detected; only top-level fields are evaluated for dropping.
func reconcileSchema(substraitSchema *substraitpb.NamedStruct, schema *arrow.Schema) (*substraitpb.NamedStruct, *arrow.Schema, map[int]int, error) {
	fields := substraitSchema.GetStruct()
	if len(fields.GetTypes()) != schema.NumFields() {
		return nil, nil, nil, errs.SchemaMismatch(
			"the number of fields in the provided substrait schema did not match the number of fields in the input schema")
	}

	names := substraitSchema.GetNames()
	keptSubstraitFields := make([]*substraitpb.Type, 0, len(fields.GetTypes()))
	keptArrowFields := make([]arrow.Field, 0, schema.NumFields())
	indexMapping := make(map[int]int, schema.NumFields())
	fieldCounter := 0
	fieldIndex := 0
	for i, substraitField := range fields.GetTypes() {
		span := countFlattenedFields(substraitField)
		if fieldIndex >= len(names) {
			return nil, nil, nil, errs.InvalidInput(
				"the provided substrait schema has fewer names than flattened fields")
		}

		if !strings.HasPrefix(names[fieldIndex], placeholderPrefix) && !isUserDefined(substraitField) {
			keptSubstraitFields = append(keptSubstraitFields, substraitField)
			keptArrowFields = append(keptArrowFields, schema.Field(i))
			for offset := 0; offset < span; offset++ {
				indexMapping[fieldIndex+offset] = fieldCounter + offset
			}
			fieldCounter += span
		}
		fieldIndex += span
	}

	reducedNames := make([]string, len(indexMapping))
	for oldIdx, name := range names {
		if newIdx, ok := indexMapping[oldIdx]; ok {
			reducedNames[newIdx] = name
		}
	}

	metadata := schema.Metadata()
	reducedArrow := arrow.NewSchema(keptArrowFields, &metadata)
	reducedSubstrait := &substraitpb.NamedStruct{
		Names: reducedNames,
		Struct: &substraitpb.Type_Struct{
			Types:                  keptSubstraitFields,
			TypeVariationReference: fields.GetTypeVariationReference(),
			Nullability:            fields.GetNullability(),
		},
	}
	return reducedSubstrait, reducedArrow, indexMapping, nil
}

func isUserDefined(t *substraitpb.Type) bool {
	switch t.GetKind().(type) {
	case *substraitpb.Type_UserDefined_, *substraitpb.Type_UserDefinedTypeReference:
		return true
	default:
		return false
	}
}

// keepFunctionExtensions filters extension declarations down to function
// extensions. Type extensions are dropped because the schema fields carrying
// those types were removed during reconciliation.
func keepFunctionExtensions(decls []*extensionspb.SimpleExtensionDeclaration) []*extensionspb.SimpleExtensionDeclaration {
	kept := make([]*extensionspb.SimpleExtensionDeclaration, 0, len(decls))
	for _, decl := range decls {
		if _, ok := decl.GetMappingType().(*extensionspb.SimpleExtensionDeclaration_ExtensionFunction_); ok {
			kept = append(kept, decl)
		}
	}
	return kept
}
