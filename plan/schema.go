package plan

import (
	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"

	"github.com/hugr-lab/pushdown-go/errs"
)

// ToNamedStruct converts an Arrow schema to a Substrait NamedStruct. Names
// follow the flattened pre-order convention: a struct field contributes its
// own name followed by the names of all of its descendants, depth first.
func ToNamedStruct(schema *arrow.Schema) (*substraitpb.NamedStruct, error) {
	types := make([]*substraitpb.Type, 0, schema.NumFields())
	var names []string
	for i := 0; i < schema.NumFields(); i++ {
		field := schema.Field(i)
		t, err := ToSubstraitType(field.Type, field.Nullable)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		names = appendFlattenedNames(names, field)
	}
	return &substraitpb.NamedStruct{
		Names: names,
		Struct: &substraitpb.Type_Struct{
			Types:       types,
			Nullability: substraitpb.Type_NULLABILITY_REQUIRED,
		},
	}, nil
}

func appendFlattenedNames(names []string, field arrow.Field) []string {
	names = append(names, field.Name)
	if st, ok := field.Type.(*arrow.StructType); ok {
		for i := 0; i < st.NumFields(); i++ {
			names = appendFlattenedNames(names, st.Field(i))
		}
	}
	return names
}

// ToSubstraitType maps an Arrow type to its Substrait counterpart. Types
// outside the representable subset are typed rejections.
func ToSubstraitType(dt arrow.DataType, nullable bool) (*substraitpb.Type, error) {
	n := nullability(nullable)
	switch t := dt.(type) {
	case *arrow.BooleanType:
		return &substraitpb.Type{Kind: &substraitpb.Type_Bool{Bool: &substraitpb.Type_Boolean{Nullability: n}}}, nil
	case *arrow.Int8Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_I8_{I8: &substraitpb.Type_I8{Nullability: n}}}, nil
	case *arrow.Int16Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_I16_{I16: &substraitpb.Type_I16{Nullability: n}}}, nil
	case *arrow.Int32Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_I32_{I32: &substraitpb.Type_I32{Nullability: n}}}, nil
	case *arrow.Int64Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_I64_{I64: &substraitpb.Type_I64{Nullability: n}}}, nil
	case *arrow.Float32Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_Fp32{Fp32: &substraitpb.Type_FP32{Nullability: n}}}, nil
	case *arrow.Float64Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_Fp64{Fp64: &substraitpb.Type_FP64{Nullability: n}}}, nil
	case *arrow.StringType:
		return &substraitpb.Type{Kind: &substraitpb.Type_String_{String_: &substraitpb.Type_String{Nullability: n}}}, nil
	case *arrow.BinaryType:
		return &substraitpb.Type{Kind: &substraitpb.Type_Binary_{Binary: &substraitpb.Type_Binary{Nullability: n}}}, nil
	case *arrow.Date32Type:
		return &substraitpb.Type{Kind: &substraitpb.Type_Date_{Date: &substraitpb.Type_Date{Nullability: n}}}, nil
	case *arrow.TimestampType:
		if t.Unit != arrow.Microsecond {
			return nil, errs.Newf(errs.KindSchema, "only microsecond timestamps are representable, got unit %s", t.Unit)
		}
		return &substraitpb.Type{Kind: &substraitpb.Type_Timestamp_{Timestamp: &substraitpb.Type_Timestamp{Nullability: n}}}, nil
	case *arrow.StructType:
		children := make([]*substraitpb.Type, t.NumFields())
		for i := 0; i < t.NumFields(); i++ {
			child := t.Field(i)
			ct, err := ToSubstraitType(child.Type, child.Nullable)
			if err != nil {
				return nil, err
			}
			children[i] = ct
		}
		return &substraitpb.Type{Kind: &substraitpb.Type_Struct_{Struct: &substraitpb.Type_Struct{
			Types:       children,
			Nullability: n,
		}}}, nil
	case *arrow.ListType:
		elem := t.ElemField()
		et, err := ToSubstraitType(elem.Type, elem.Nullable)
		if err != nil {
			return nil, err
		}
		return &substraitpb.Type{Kind: &substraitpb.Type_List_{List: &substraitpb.Type_List{
			Type:        et,
			Nullability: n,
		}}}, nil
	case *arrow.MapType:
		kt, err := ToSubstraitType(t.KeyType(), false)
		if err != nil {
			return nil, err
		}
		vt, err := ToSubstraitType(t.ItemType(), t.ItemField().Nullable)
		if err != nil {
			return nil, err
		}
		return &substraitpb.Type{Kind: &substraitpb.Type_Map_{Map: &substraitpb.Type_Map{
			Key:         kt,
			Value:       vt,
			Nullability: n,
		}}}, nil
	default:
		return nil, errs.Newf(errs.KindSchema, "arrow type %s is not representable in substrait", dt)
	}
}

// FromSubstraitType maps a Substrait type back to Arrow, returning the type
// and its nullability. Struct types cannot be mapped here because the type
// node does not carry field names (those live in the schema's flattened name
// list).
func FromSubstraitType(t *substraitpb.Type) (arrow.DataType, bool, error) {
	if t == nil || t.GetKind() == nil {
		return nil, false, errs.InvalidInput("substrait type is missing its kind")
	}
	switch k := t.GetKind().(type) {
	case *substraitpb.Type_Bool:
		return arrow.FixedWidthTypes.Boolean, isNullable(k.Bool.GetNullability()), nil
	case *substraitpb.Type_I8_:
		return arrow.PrimitiveTypes.Int8, isNullable(k.I8.GetNullability()), nil
	case *substraitpb.Type_I16_:
		return arrow.PrimitiveTypes.Int16, isNullable(k.I16.GetNullability()), nil
	case *substraitpb.Type_I32_:
		return arrow.PrimitiveTypes.Int32, isNullable(k.I32.GetNullability()), nil
	case *substraitpb.Type_I64_:
		return arrow.PrimitiveTypes.Int64, isNullable(k.I64.GetNullability()), nil
	case *substraitpb.Type_Fp32:
		return arrow.PrimitiveTypes.Float32, isNullable(k.Fp32.GetNullability()), nil
	case *substraitpb.Type_Fp64:
		return arrow.PrimitiveTypes.Float64, isNullable(k.Fp64.GetNullability()), nil
	case *substraitpb.Type_String_:
		return arrow.BinaryTypes.String, isNullable(k.String_.GetNullability()), nil
	case *substraitpb.Type_Binary_:
		return arrow.BinaryTypes.Binary, isNullable(k.Binary.GetNullability()), nil
	case *substraitpb.Type_Date_:
		return arrow.FixedWidthTypes.Date32, isNullable(k.Date.GetNullability()), nil
	case *substraitpb.Type_Timestamp_:
		return arrow.FixedWidthTypes.Timestamp_us, isNullable(k.Timestamp.GetNullability()), nil
	case *substraitpb.Type_List_:
		elem, elemNullable, err := FromSubstraitType(k.List.GetType())
		if err != nil {
			return nil, false, err
		}
		return arrow.ListOfField(arrow.Field{Name: "item", Type: elem, Nullable: elemNullable}),
			isNullable(k.List.GetNullability()), nil
	case *substraitpb.Type_Map_:
		key, _, err := FromSubstraitType(k.Map.GetKey())
		if err != nil {
			return nil, false, err
		}
		value, _, err := FromSubstraitType(k.Map.GetValue())
		if err != nil {
			return nil, false, err
		}
		return arrow.MapOf(key, value), isNullable(k.Map.GetNullability()), nil
	case *substraitpb.Type_Struct_:
		return nil, false, errs.Unsupported("cannot map a bare substrait struct type without field names")
	case *substraitpb.Type_UserDefined_, *substraitpb.Type_UserDefinedTypeReference:
		return nil, false, errs.Unsupported("user defined types are not representable")
	default:
		return nil, false, errs.Newf(errs.KindSchema, "substrait type %T is not representable in arrow", k)
	}
}

func nullability(nullable bool) substraitpb.Type_Nullability {
	if nullable {
		return substraitpb.Type_NULLABILITY_NULLABLE
	}
	return substraitpb.Type_NULLABILITY_REQUIRED
}

func isNullable(n substraitpb.Type_Nullability) bool {
	return n == substraitpb.Type_NULLABILITY_NULLABLE
}
