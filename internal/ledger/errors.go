package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	// KindDependency is a store or object-storage failure: surfaced as 500,
	// message passed through, never retried.
	KindDependency Kind = iota
	// KindValidation is a missing or malformed field: surfaced as 400.
	KindValidation
	// KindUnauthorized is a missing or invalid session: surfaced as 401.
	KindUnauthorized
	// KindNotFound is a referenced record that is absent or not owned by
	// the caller: surfaced as 404.
	KindNotFound
)

// Error carries the classification alongside the message. All errors leaving
// the ledger service are of this type.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a user-correctable validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized builds an authorization error.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// Dependencyf wraps an upstream failure.
func Dependencyf(err error, format string, args ...any) *Error {
	return &Error{Kind: KindDependency, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the classification of err, defaulting to KindDependency for
// anything the service didn't classify itself.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// HTTPStatus maps an error to the status code the request boundary returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
