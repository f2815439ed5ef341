// Package errors provides the shared error types and sentinel errors.
//
//   - L1 sentinel errors: ErrNotFound / ErrInvalidInput / ErrTimeout ...
//   - L2 AppError: application error carrying Op + Code + Message
package errors

import (
	"errors"
	"fmt"
)

// ========================================
// L1 sentinel errors
// ========================================

var (
	// ErrNotFound resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput invalid argument
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout operation timed out
	ErrTimeout = errors.New("timeout")

	// ErrClosed component already shut down
	ErrClosed = errors.New("closed")
)

// ========================================
// L2 AppError
// ========================================

// AppError is an application-level error with operation context.
type AppError struct {
	Op      string // operation name, e.g. "Registry.Status"
	Code    string // error code, e.g. "HTTP_ERROR"
	Message string // human-readable message
	Err     error  // wrapped cause
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap supports errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ========================================
// Factories
// ========================================

// New creates an application error without a cause.
func New(op, message string) error {
	return &AppError{Op: op, Message: message}
}

// Newf creates an application error with a formatted message.
func Newf(op, format string, args ...any) error {
	return &AppError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with operation context.
func Wrap(err error, op string, message string) error {
	return &AppError{Op: op, Message: message, Err: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, op, format string, args ...any) error {
	return &AppError{Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}
