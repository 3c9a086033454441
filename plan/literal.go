package plan

import (
	"github.com/apache/arrow-go/v18/arrow"
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"

	"github.com/hugr-lab/pushdown-go/errs"
	"github.com/hugr-lab/pushdown-go/expr"
)

// toSubstraitLiteral converts a native literal to its wire form. The wire
// kind follows the Go value type; a nil value becomes a typed NULL.
func toSubstraitLiteral(l *expr.Literal) (*substraitpb.Expression_Literal, error) {
	if l.Value == nil {
		if l.Type == nil {
			return nil, errs.InvalidInput("null literal is missing its type")
		}
		t, err := ToSubstraitType(l.Type, true)
		if err != nil {
			return nil, err
		}
		return &substraitpb.Expression_Literal{
			Nullable:    true,
			LiteralType: &substraitpb.Expression_Literal_Null{Null: t},
		}, nil
	}

	lit := &substraitpb.Expression_Literal{}
	switch v := l.Value.(type) {
	case bool:
		lit.LiteralType = &substraitpb.Expression_Literal_Boolean{Boolean: v}
	case int8:
		lit.LiteralType = &substraitpb.Expression_Literal_I8{I8: int32(v)}
	case int16:
		lit.LiteralType = &substraitpb.Expression_Literal_I16{I16: int32(v)}
	case int32:
		lit.LiteralType = &substraitpb.Expression_Literal_I32{I32: v}
	case int64:
		lit.LiteralType = &substraitpb.Expression_Literal_I64{I64: v}
	case float32:
		lit.LiteralType = &substraitpb.Expression_Literal_Fp32{Fp32: v}
	case float64:
		lit.LiteralType = &substraitpb.Expression_Literal_Fp64{Fp64: v}
	case string:
		lit.LiteralType = &substraitpb.Expression_Literal_String_{String_: v}
	case []byte:
		lit.LiteralType = &substraitpb.Expression_Literal_Binary{Binary: v}
	case arrow.Date32:
		lit.LiteralType = &substraitpb.Expression_Literal_Date{Date: int32(v)}
	case arrow.Timestamp:
		lit.LiteralType = &substraitpb.Expression_Literal_Timestamp{Timestamp: int64(v)}
	default:
		return nil, errs.Newf(errs.KindUnsupported, "literal value of type %T is not representable", l.Value)
	}
	return lit, nil
}

// fromSubstraitLiteral converts a wire literal to a native literal.
func fromSubstraitLiteral(lit *substraitpb.Expression_Literal) (*expr.Literal, error) {
	if lit == nil || lit.GetLiteralType() == nil {
		return nil, errs.InvalidInput("literal is missing its value kind")
	}
	switch v := lit.GetLiteralType().(type) {
	case *substraitpb.Expression_Literal_Boolean:
		return &expr.Literal{Value: v.Boolean, Type: arrow.FixedWidthTypes.Boolean}, nil
	case *substraitpb.Expression_Literal_I8:
		return &expr.Literal{Value: int8(v.I8), Type: arrow.PrimitiveTypes.Int8}, nil
	case *substraitpb.Expression_Literal_I16:
		return &expr.Literal{Value: int16(v.I16), Type: arrow.PrimitiveTypes.Int16}, nil
	case *substraitpb.Expression_Literal_I32:
		return &expr.Literal{Value: v.I32, Type: arrow.PrimitiveTypes.Int32}, nil
	case *substraitpb.Expression_Literal_I64:
		return &expr.Literal{Value: v.I64, Type: arrow.PrimitiveTypes.Int64}, nil
	case *substraitpb.Expression_Literal_Fp32:
		return &expr.Literal{Value: v.Fp32, Type: arrow.PrimitiveTypes.Float32}, nil
	case *substraitpb.Expression_Literal_Fp64:
		return &expr.Literal{Value: v.Fp64, Type: arrow.PrimitiveTypes.Float64}, nil
	case *substraitpb.Expression_Literal_String_:
		return &expr.Literal{Value: v.String_, Type: arrow.BinaryTypes.String}, nil
	case *substraitpb.Expression_Literal_Binary:
		return &expr.Literal{Value: v.Binary, Type: arrow.BinaryTypes.Binary}, nil
	case *substraitpb.Expression_Literal_Date:
		return &expr.Literal{Value: arrow.Date32(v.Date), Type: arrow.FixedWidthTypes.Date32}, nil
	case *substraitpb.Expression_Literal_Timestamp:
		return &expr.Literal{Value: arrow.Timestamp(v.Timestamp), Type: arrow.FixedWidthTypes.Timestamp_us}, nil
	case *substraitpb.Expression_Literal_Null:
		dt, _, err := FromSubstraitType(v.Null)
		if err != nil {
			return nil, err
		}
		return &expr.Literal{Type: dt}, nil
	default:
		return nil, errs.Newf(errs.KindUnsupported, "literal kind %T is not supported", v)
	}
}
