// Package service holds the business rules of UniSpace. Services take the
// authenticated model.Identity explicitly, depend on narrow store
// interfaces, and report failures with the typed errors below so the HTTP
// layer can map them to status codes.
package service

import (
	"errors"
	"fmt"
)

// ValidationError means the request itself is malformed.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError means the caller could not be identified.
type AuthenticationError struct{ Message string }

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError means the caller is known but not allowed.
type AuthorizationError struct{ Message string }

func (e *AuthorizationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError means the write collides with existing state.
type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func invalidField(field, msg string) error {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

func notFound(msg string) error { return &NotFoundError{Message: msg} }
func conflict(msg string) error { return &ConflictError{Message: msg} }
func forbidden(msg string) error { return &AuthorizationError{Message: msg} }

// IsKind reports whether err is one of the typed service errors, which
// callers surface as-is instead of logging as internal failures.
func IsKind(err error) bool {
	var (
		v  *ValidationError
		an *AuthenticationError
		az *AuthorizationError
		nf *NotFoundError
		c  *ConflictError
	)
	return errors.As(err, &v) || errors.As(err, &an) || errors.As(err, &az) ||
		errors.As(err, &nf) || errors.As(err, &c)
}
