package moderation

import (
	"errors"
	"fmt"
)

// Kind classifies a moderation error for propagation policy purposes.
// Validation, Forbidden and Conflict are terminal and never retried;
// Transient errors are safe to retry as a whole operation; Degraded
// marks a non-critical side effect failure that did not unwind the
// primary state change.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindConflict
	KindTransient
	KindDegraded
)

// String returns the lowercase taxonomy name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Error is a classified moderation error with a human-readable,
// user-visible message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the taxonomy kind of err, or KindUnknown for errors
// that did not originate from the moderation core.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Transient wraps a storage-level failure (lock contention, timeout)
// that the caller may retry after re-checking current state.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Msg: "moderation action could not be committed, retry", Err: err}
}
