// Package apperr defines the closed set of error kinds the services return.
// Transport status codes are derived from the kind in one place, the api package.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}

// Error carries a user facing message and, optionally, the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage failure. The cause is kept for logs, the message
// is what callers see.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Anything else is treated as a persistence failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// MessageOf returns the user facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error."
}
