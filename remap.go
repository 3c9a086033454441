package pushdown

import (
	substraitpb "github.com/substrait-io/substrait-protobuf/go/substraitpb"

	"github.com/hugr-lab/pushdown-go/errs"
)

// remapExprReferences rewrites every direct input struct-field reference in
// the expression tree using mapping (old flattened index to new flattened
// index), in place. It walks every expression kind the wire grammar defines;
// kinds that cannot appear in a pushdown filter, and reference shapes the
// conversion cannot safely renumber, are typed rejections that abort the
// whole conversion.
func remapExprReferences(e *substraitpb.Expression, mapping map[int]int) error {
	if e == nil || e.GetRexType() == nil {
		return errs.InvalidInput("expression is missing its rex_type")
	}
	switch node := e.GetRexType().(type) {
	// Simple, no field references possible.
	case *substraitpb.Expression_Literal_,
		*substraitpb.Expression_Nested_,
		*substraitpb.Expression_Enum_,
		*substraitpb.Expression_DynamicParameter:
		return nil

	// Complex operators not supported in filters.
	case *substraitpb.Expression_WindowFunction_, *substraitpb.Expression_Subquery_:
		return errs.Unsupported("window functions or subqueries not allowed in filter expression")

	// Pass through operators, nested children may have field references.
	case *substraitpb.Expression_ScalarFunction_:
		fn := node.ScalarFunction
		for _, arg := range fn.GetArgs() { // legacy args field
			if err := remapExprReferences(arg, mapping); err != nil {
				return err
			}
		}
		for _, arg := range fn.GetArguments() {
			value, ok := arg.GetArgType().(*substraitpb.FunctionArgument_Value)
			if !ok {
				continue // enum and type arguments carry no field references
			}
			if err := remapExprReferences(value.Value, mapping); err != nil {
				return err
			}
		}
		return nil

	case *substraitpb.Expression_IfThen_:
		for _, clause := range node.IfThen.GetIfs() {
			if err := remapExprReferences(clause.GetIf(), mapping); err != nil {
				return err
			}
			if err := remapExprReferences(clause.GetThen(), mapping); err != nil {
				return err
			}
		}
		return remapExprReferences(node.IfThen.GetElse(), mapping)

	case *substraitpb.Expression_SwitchExpression_:
		// Case keys are literals, not expressions; only results are walked.
		for _, clause := range node.SwitchExpression.GetIfs() {
			if err := remapExprReferences(clause.GetThen(), mapping); err != nil {
				return err
			}
		}
		return remapExprReferences(node.SwitchExpression.GetElse(), mapping)

	case *substraitpb.Expression_SingularOrList_:
		for _, opt := range node.SingularOrList.GetOptions() {
			if err := remapExprReferences(opt, mapping); err != nil {
				return err
			}
		}
		return remapExprReferences(node.SingularOrList.GetValue(), mapping)

	case *substraitpb.Expression_MultiOrList_:
		for _, opt := range node.MultiOrList.GetOptions() {
			for _, field := range opt.GetFields() {
				if err := remapExprReferences(field, mapping); err != nil {
					return err
				}
			}
		}
		for _, value := range node.MultiOrList.GetValue() {
			if err := remapExprReferences(value, mapping); err != nil {
				return err
			}
		}
		return nil

	case *substraitpb.Expression_Cast_:
		return remapExprReferences(node.Cast.GetInput(), mapping)

	// Finally, the selection, which might actually have field references.
	case *substraitpb.Expression_Selection:
		return remapSelection(node.Selection, mapping)

	default:
		return errs.Internalf("unhandled expression kind %T during reference remap", node)
	}
}

func remapSelection(sel *substraitpb.Expression_FieldReference, mapping map[int]int) error {
	if sel == nil {
		return errs.InvalidInput("field reference is missing")
	}
	switch sel.GetRootType().(type) {
	case *substraitpb.Expression_FieldReference_Expression, *substraitpb.Expression_FieldReference_OuterReference_:
		// These do not reference input fields, no remap needed.
		return nil
	}

	switch ref := sel.GetReferenceType().(type) {
	case *substraitpb.Expression_FieldReference_MaskedReference:
		return errs.Unsupported("masked references not yet supported in filter expressions")
	case *substraitpb.Expression_FieldReference_DirectReference:
		switch segment := ref.DirectReference.GetReferenceType().(type) {
		case *substraitpb.Expression_ReferenceSegment_ListElement_, *substraitpb.Expression_ReferenceSegment_MapKey_:
			return errs.Unsupported("map/list nested references not supported in pushdown filters")
		case *substraitpb.Expression_ReferenceSegment_StructField_:
			field := segment.StructField
			if field.GetChild() != nil {
				return errs.Unsupported("nested references in pushdown filters not yet supported")
			}
			newIndex, ok := mapping[int(field.GetField())]
			if !ok {
				return errs.Unsupported("pushdown filter referenced a field that is not yet supported by substrait conversion")
			}
			field.Field = int32(newIndex)
			return nil
		default:
			return errs.InvalidInput("direct reference is missing its segment type")
		}
	default:
		return errs.InvalidInput("field reference is missing its reference type")
	}
}
