// Package pushdown converts filter expressions between the Substrait
// interchange format and the native expression form used by Arrow-based
// query engines, so externally supplied filters can be pushed down into scan
// planning.
//
// The package is the bridge between two representations:
//
//   - A Substrait ExtendedExpression message: a portable, wire-serialized
//     expression plus the schema it is evaluated against.
//   - A native expression tree (package expr) over an Arrow schema.
//
// # Decoding
//
// DecodeExpr turns Substrait bytes into a native expression:
//
//	filter, err := pushdown.DecodeExpr(ctx, scanOpts.Filter, tableSchema)
//	if err != nil {
//	    return err
//	}
//	// filter is e.g. x < 0, with unqualified column references
//
// Decoding validates the envelope (exactly one scalar expression), strips
// schema fields the native representation cannot carry (placeholder fields
// and user defined types) while renumbering every field reference in the
// expression tree, and converts through a synthetic single-table plan.
//
// # Encoding
//
// EncodeExpr emits a native expression as a single ExtendedExpression
// message:
//
//	data, err := pushdown.EncodeExpr(&expr.Comparison{
//	    Op:    expr.CompareLess,
//	    Left:  &expr.Column{Name: "x"},
//	    Right: &expr.Literal{Value: int32(0), Type: arrow.PrimitiveTypes.Int32},
//	}, tableSchema)
//
// # Unsupported constructs
//
// Window functions, subqueries, masked references, list/map element
// references, and multi-level struct references are rejected with typed
// errors (errs.KindUnsupported); there is no best-effort fallback. Errors
// carry the call site where they were raised (see package errs) and can be
// adapted to gRPC status errors for Flight servers via errs.ToStatus.
//
// # Logging
//
// The package uses log/slog.Default() for its (sparse) internal logging.
//
// # Concurrency
//
// Conversions share no state: every call builds its own schema copies, index
// map, and plan session, so concurrent EncodeExpr/DecodeExpr calls need no
// locking.
package pushdown
