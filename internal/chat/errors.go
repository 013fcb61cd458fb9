package chat

import (
	"errors"
	"fmt"
)

// Kind classifies errors crossing the orchestrator boundary. Everything
// below the orchestrator is wrapped into one of these before it reaches
// the transport layer.
type Kind string

const (
	KindConfig        Kind = "CONFIG_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindLimitExceeded Kind = "LIMIT_EXCEEDED"
	KindTransport     Kind = "TRANSPORT_ERROR"
	KindStore         Kind = "STORE_ERROR"
)

type Error struct {
	Kind   Kind
	Reason string
	// Dimension is set for limit-exceeded errors: "messages", "tokens"
	// or "chars".
	Dimension Dimension
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("chat: %s (%s)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("chat: %s (%s): %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func limitError(dim Dimension) *Error {
	return &Error{Kind: KindLimitExceeded, Reason: string(dim) + " limit reached", Dimension: dim}
}

// KindOf extracts the error kind, defaulting to KindStore for unclassified
// errors so the transport never treats them as retryable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// DimensionOf returns the violated limit dimension, if any.
func DimensionOf(err error) (Dimension, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindLimitExceeded {
		return e.Dimension, true
	}
	return "", false
}
