// Package errors provides structured error handling with typed error codes.
//
// Error codes are grouped by category:
//   - General errors (1-99)
//   - Validation errors (100-199): malformed inputs, bad parameters
//   - Data/Resource errors (200-299): missing data, query failures
//   - Indicator errors (300-399): indicator lookup and calculation
//   - Strategy/Signal errors (400-499): strategy lookup, signal trees
//   - Backtest errors (500-599): engine and result handling
//   - Optimizer errors (600-699): search space and trial failures
//   - Market data errors (700-799): fetching, parsing, caching
//   - API errors (800-899): HTTP surface
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidInput, "price and signal lengths differ")
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no bars cached for %s", symbol)
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", cause)
//	if errors.HasCode(err, errors.ErrCodeInvalidInput) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a structured error carrying a code, a message and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// Returns ErrCodeUnknown if the error is not an *Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error carries a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsInvalidInput reports whether err is any validation-category error.
// The backtest engine raises these on structurally malformed inputs; the
// orchestration layer treats them as failed trials rather than crashes.
func IsInvalidInput(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}
