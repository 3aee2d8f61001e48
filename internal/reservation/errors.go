package reservation

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("bag is not available for reservation")
	ErrUnauthorized     = errors.New("not authorized for this order")
	ErrInvalidState     = errors.New("order is not in a valid state for this operation")
	ErrInvalidCode      = errors.New("invalid pickup code")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
	ErrTooLate          = errors.New("too late to cancel this order")

	// ErrTransient marks lock-wait, deadlock and serialization failures. Callers may retry.
	ErrTransient = errors.New("transient conflict, retry")
)

// Kind is the caller-facing classification of an error returned by Service.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindUnavailable      Kind = "UNAVAILABLE"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindInvalidState     Kind = "INVALID_STATE"
	KindInvalidCode      Kind = "INVALID_CODE"
	KindAlreadyCancelled Kind = "ALREADY_CANCELLED"
	KindTooLate          Kind = "TOO_LATE"
	KindTransient        Kind = "TRANSIENT"
	KindInternal         Kind = "INTERNAL"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrUnavailable, KindUnavailable},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidState, KindInvalidState},
	{ErrInvalidCode, KindInvalidCode},
	{ErrAlreadyCancelled, KindAlreadyCancelled},
	{ErrTooLate, KindTooLate},
	{ErrTransient, KindTransient},
}

// KindOf maps err onto the sentinel it wraps. Anything else is KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
