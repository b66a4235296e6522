// Package common contains shared constants and sentinel errors used across
// account-service components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorConflict signals a unique-constraint violation that the caller may
	// resolve by regenerating the conflicting value (token collisions).
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)

// Error is a terminal, user-visible domain failure. It carries a machine-readable
// code, an optional offending field name, a human message, and an HTTP status class.
type Error struct {
	Code    string
	Field   string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// Is matches two domain errors by code, so that field-specific instances
// (validation errors in particular) compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrUnauthorized     = &Error{Code: "unauthorization", Message: "Unauthorization", Status: 403}
	ErrExpired          = &Error{Code: "expire", Message: "Expire", Status: 403}
	ErrForbidden        = &Error{Code: "forbidden", Message: "Forbidden", Status: 403}
	ErrEmailExists      = &Error{Code: "email_exist", Field: "email", Message: "Email address is exist", Status: 400}
	ErrEmailNotFound    = &Error{Code: "email_not_exist", Field: "email", Message: "Email address is not exist", Status: 400}
	ErrUsernameExists   = &Error{Code: "username_exist", Field: "username", Message: "Username is exist", Status: 400}
	ErrPasswordMismatch = &Error{Code: "password_not_equal", Field: "confirm_password", Message: "Passwords are not equal", Status: 400}
	ErrInvalidPassword  = &Error{Code: "invalid_password", Field: "password", Message: "Invalid password", Status: 400}
	ErrAvatarNotFound   = &Error{Code: "avatar_not_exist", Message: "Avatar not exist", Status: 400}

	// ErrValidation is the sentinel for malformed-input failures. Concrete
	// instances are built with NewValidationError and matched via errors.Is.
	ErrValidation = &Error{Code: "validation_error", Message: "Validation error", Status: 400}
)

// NewValidationError builds a field-tagged validation failure. Input gating is
// fail-fast: only the first failing field is ever reported.
func NewValidationError(field, message string) *Error {
	return &Error{Code: ErrValidation.Code, Field: field, Message: message, Status: 400}
}
