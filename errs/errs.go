// Package errs defines the error taxonomy used by the pushdown conversion layer.
//
// Every fallible operation in this module returns an *Error carrying a Kind from
// a closed set, a human-readable message, the call site where the error was first
// raised, and (optionally) the wrapped cause. Errors from external domains
// (protobuf codec, Arrow schema handling, gRPC transport) are absorbed through
// explicit adapter functions that tag a default kind and keep the cause chain
// intact.
package errs

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Kind classifies a conversion failure.
type Kind int

const (
	// KindInvalidInput indicates malformed caller input, such as an envelope
	// with no expressions or an expression missing its sub-kind.
	KindInvalidInput Kind = iota + 1

	// KindSchemaMismatch indicates that the wire schema and the native schema
	// disagree on shape (flattened field counts differ).
	KindSchemaMismatch

	// KindUnsupported indicates a wire construct this conversion cannot safely
	// handle (window functions, subqueries, nested references, ...).
	KindUnsupported

	// KindWire indicates a failure in the wire codec (protobuf encode/decode).
	KindWire

	// KindPlan indicates a failure while building or consuming the synthetic
	// plan through the planning engine.
	KindPlan

	// KindSchema indicates a failure in Arrow schema or type handling.
	KindSchema

	// KindInternal indicates a bug in this module; these should never surface
	// for well-formed input.
	KindInternal

	// KindRelayed marks an error observed through a Shared clone. Only the
	// owning side of a fan-out retains the original error; relayed copies
	// carry the rendered message alone.
	KindRelayed
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindSchemaMismatch:
		return "schema mismatch"
	case KindUnsupported:
		return "not supported"
	case KindWire:
		return "wire codec"
	case KindPlan:
		return "plan"
	case KindSchema:
		return "schema"
	case KindInternal:
		return "internal"
	case KindRelayed:
		return "relayed"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is the typed failure returned by every fallible operation in this
// module. Loc records the call site where the error was created, not a full
// stack trace.
type Error struct {
	Kind Kind
	Msg  string
	Loc  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Loc != "" {
		sb.WriteString(", ")
		sb.WriteString(e.Loc)
	}
	return sb.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same kind. This lets callers
// write errors.Is(err, &errs.Error{Kind: errs.KindUnsupported}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// caller returns "file.go:123" for the frame skip levels above the caller of
// caller itself.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(line)
}

// New creates an error of the given kind, capturing the caller's location.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Loc: caller(1)}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Loc: caller(1)}
}

// Wrap creates an error of the given kind around a cause, capturing the
// caller's location. Returns nil if err is nil.
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Loc: caller(1), Err: err}
}

// InvalidInput creates a KindInvalidInput error.
func InvalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Loc: caller(1)}
}

// InvalidInputf creates a KindInvalidInput error with formatting.
func InvalidInputf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...), Loc: caller(1)}
}

// Unsupported creates a KindUnsupported error.
func Unsupported(msg string) *Error {
	return &Error{Kind: KindUnsupported, Msg: msg, Loc: caller(1)}
}

// SchemaMismatch creates a KindSchemaMismatch error.
func SchemaMismatch(msg string) *Error {
	return &Error{Kind: KindSchemaMismatch, Msg: msg, Loc: caller(1)}
}

// Internal creates a KindInternal error.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Loc: caller(1)}
}

// Internalf creates a KindInternal error with formatting.
func Internalf(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...), Loc: caller(1)}
}

// KindOf returns the kind of err, or 0 if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// FromCodec adapts a protobuf encode/decode failure, tagging KindWire.
// Returns nil if err is nil.
func FromCodec(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindWire, Msg: "wire codec failure", Loc: caller(1), Err: err}
}

// FromArrow adapts an Arrow schema/type failure, tagging KindSchema.
// Returns nil if err is nil.
func FromArrow(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSchema, Msg: "arrow failure", Loc: caller(1), Err: err}
}
