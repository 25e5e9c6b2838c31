// Package failure holds the error taxonomy of the capture pipeline.
// Every error carries a stable, human-readable message that is safe to show to users;
// the underlying cause is kept for logs.
package failure

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	InvalidInput
	CaptureFailure
	EncodeFailure
	PersistFailure
	PurgeFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid-input"
	case CaptureFailure:
		return "capture-failure"
	case EncodeFailure:
		return "encode-failure"
	case PersistFailure:
		return "persist-failure"
	case PurgeFailure:
		return "purge-failure"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors of the same kind and message regardless of their cause,
// so sentinels keep working after With.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// With returns a copy of e that wraps cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

// Detail renders the message together with its cause, for logging.
func (e *Error) Detail() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%v: %v", e.Message, e.Cause)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the stable message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
