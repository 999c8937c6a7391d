// Package apperr defines the error kinds shared by the service and HTTP layers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure independently of its message.
type Kind string

const (
	Unknown          Kind = "UNKNOWN"
	NotFound         Kind = "NOT_FOUND"
	CapacityExceeded Kind = "CAPACITY_EXCEEDED"
	DuplicateAction  Kind = "DUPLICATE_ACTION"
	InvalidInput     Kind = "INVALID_INPUT"
	PrecursorMissing Kind = "PRECURSOR_MISSING"
	HasDependents    Kind = "HAS_DEPENDENTS"
	Conflict         Kind = "CONFLICT"
	Unauthorized     Kind = "UNAUTHORIZED"
	Forbidden        Kind = "FORBIDDEN"
)

// HTTPStatus maps the kind to the status code returned to API clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case CapacityExceeded, DuplicateAction, InvalidInput, PrecursorMissing:
		return http.StatusBadRequest
	case HasDependents, Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Message is safe to show to clients; Cause is not.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same kind and message, so sentinel
// values compare equal to wrapped copies of themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// With returns a copy of the sentinel e carrying cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the client-facing message of the first *Error in err's
// chain, or fallback when there is none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
