// Package errs carries the service error taxonomy. Services return errors
// built here; the HTTP layer maps them to status codes with Status.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// Internal covers unexpected failures (storage errors etc).
	Internal Kind = iota
	// Validation: malformed input, recoverable by correcting it.
	Validation
	// Unauthenticated: missing/invalid credentials or session.
	Unauthenticated
	// NotAuthorized: the caller is known but not allowed.
	NotAuthorized
	// NotFound: referenced entity absent.
	NotFound
	// Conflict: uniqueness violations (phone, username).
	Conflict
	// StateConflict: operation invalid for the entity's current state,
	// e.g. messaging a blocked user.
	StateConflict
)

// Error is a kinded service error.
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

// E builds a kinded error with a plain message.
func E(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Ef builds a kinded error with a formatted message.
func Ef(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind; unknown errors report Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsNotFound(err error) bool      { return KindOf(err) == NotFound }
func IsConflict(err error) bool      { return KindOf(err) == Conflict }
func IsNotAuthorized(err error) bool { return KindOf(err) == NotAuthorized }

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotAuthorized:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, StateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
