package errs

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus adapts a conversion error to a gRPC status error so Flight servers
// can surface it to clients directly. The mapping is one-directional and keeps
// the rendered error text (including the call site) in the status message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return status.Error(codes.Unknown, err.Error())
	}
	return status.Error(codeForKind(e.Kind), e.Error())
}

func codeForKind(k Kind) codes.Code {
	switch k {
	case KindInvalidInput, KindSchemaMismatch, KindWire:
		return codes.InvalidArgument
	case KindUnsupported:
		return codes.Unimplemented
	case KindPlan, KindSchema:
		return codes.FailedPrecondition
	case KindInternal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// FromStatus adapts a gRPC status error received from a remote planner or
// codec into the local taxonomy. Non-status errors pass through Wrap with
// KindPlan.
func FromStatus(err error) *Error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &Error{Kind: KindPlan, Msg: "remote failure", Loc: caller(1), Err: err}
	}
	kind := KindPlan
	switch st.Code() {
	case codes.InvalidArgument:
		kind = KindInvalidInput
	case codes.Unimplemented:
		kind = KindUnsupported
	case codes.Internal:
		kind = KindInternal
	}
	return &Error{Kind: kind, Msg: "remote failure", Loc: caller(1), Err: err}
}
