package errs

// Shared propagates one fallible computation's error to many concurrent
// consumers without requiring the error itself to be duplicable.
//
// The Shared value created by Share owns the original error with full detail.
// Each Clone produces a reduced copy that carries only the rendered message,
// tagged KindRelayed so callers can tell an original failure from a relayed
// one. Cloning is cheap (a string copy) and safe to do once per consumer of a
// shared stream.
type Shared struct {
	// original is set only on the owning Shared.
	original error
	// msg is the rendered message, present on owners and clones alike.
	msg string
}

// Share wraps err as the owning side of a fan-out. Returns nil if err is nil.
func Share(err error) *Shared {
	if err == nil {
		return nil
	}
	return &Shared{original: err, msg: err.Error()}
}

// Clone returns a reduced copy carrying only the rendered message.
func (s *Shared) Clone() *Shared {
	if s == nil {
		return nil
	}
	return &Shared{msg: s.msg}
}

// Err returns the error to hand to a consumer: the original error on the
// owning side, or a KindRelayed reduction on a clone.
func (s *Shared) Err() error {
	if s == nil {
		return nil
	}
	if s.original != nil {
		return s.original
	}
	return &Error{Kind: KindRelayed, Msg: s.msg}
}

// Original reports the owned error and whether this Shared is the owning side.
func (s *Shared) Original() (error, bool) {
	if s == nil || s.original == nil {
		return nil, false
	}
	return s.original, true
}

// Error implements the error interface, rendering the same text on the owner
// and on every clone.
func (s *Shared) Error() string { return s.msg }
