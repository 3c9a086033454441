package plan

import (
	"strings"

	"github.com/hugr-lab/pushdown-go/expr"
)

// Substrait simple extension URIs for the canonical function sets, plus the
// Arrow convention URI for functions outside the canon.
const (
	uriBoolean    = "https://github.com/substrait-io/substrait/blob/main/extensions/functions_boolean.yaml"
	uriComparison = "https://github.com/substrait-io/substrait/blob/main/extensions/functions_comparison.yaml"
	uriCustom     = "urn:arrow:substrait_simple_extension_function"
)

const (
	fnAnd       = "and"
	fnOr        = "or"
	fnNot       = "not"
	fnIsNull    = "is_null"
	fnIsNotNull = "is_not_null"
)

var compareFunctions = map[expr.CompareOp]string{
	expr.CompareEqual:        "equal",
	expr.CompareNotEqual:     "not_equal",
	expr.CompareLess:         "lt",
	expr.CompareGreater:      "gt",
	expr.CompareLessEqual:    "lte",
	expr.CompareGreaterEqual: "gte",
}

var compareOps = map[string]expr.CompareOp{
	"equal":     expr.CompareEqual,
	"not_equal": expr.CompareNotEqual,
	"lt":        expr.CompareLess,
	"gt":        expr.CompareGreater,
	"lte":       expr.CompareLessEqual,
	"gte":       expr.CompareGreaterEqual,
}

// functionURI returns the extension URI a function is declared under.
func functionURI(name string) string {
	switch name {
	case fnAnd, fnOr, fnNot:
		return uriBoolean
	default:
		if _, ok := compareOps[name]; ok || name == fnIsNull || name == fnIsNotNull {
			return uriComparison
		}
		return uriCustom
	}
}

// compoundName builds a compound function name like "lt:any_any" from a base
// name and arity. Argument types are declared as "any" since binding happens
// on the native side.
func compoundName(name string, arity int) string {
	if arity == 0 {
		return name + ":"
	}
	parts := make([]string, arity)
	for i := range parts {
		parts[i] = "any"
	}
	return name + ":" + strings.Join(parts, "_")
}

// baseName strips the signature suffix from a compound function name.
func baseName(compound string) string {
	if idx := strings.IndexByte(compound, ':'); idx >= 0 {
		return compound[:idx]
	}
	return compound
}
