// Package apperr defines the application error kinds shared by services and
// the HTTP error handler.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error. Each kind maps to one HTTP status.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindServer       Kind = "SERVER_ERROR"
)

// Error is the error type returned by services.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
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

// Is matches on kind so callers can write errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ValidationWithDetails carries per-field failures, usually from validator/v10.
func ValidationWithDetails(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Server wraps an unexpected failure. The message is safe to show to clients,
// the wrapped error is only logged.
func Server(message string, err error) *Error {
	return &Error{Kind: KindServer, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindServer for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}
