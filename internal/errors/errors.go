package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Smart Cane client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAuthExpired      = errors.New("authentication expired")
	ErrLoginLocked      = errors.New("login temporarily locked")
	ErrSessionChanged   = errors.New("session changed while request was in flight")
	ErrForbidden        = errors.New("role required")

	// Social login errors
	ErrUnknownProvider = errors.New("unknown social login provider")
	ErrSocialLogin     = errors.New("social login failed")

	// Response errors
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrMissingID       = errors.New("missing identifier")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError is a client-side rejection raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Validation builds a *ValidationError.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
