// Package errors provides standardized error handling for the fleet controller
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors shared by every fleetd package
var (
	// ErrNotFound indicates a referenced screen, command, content item or playlist doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a uniqueness or state conflict
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidInput indicates a request was rejected before any mutation
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionMismatch indicates an optimistic concurrency failure
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrRateLimited indicates the caller exceeded its request budget
	ErrRateLimited = errors.New("rate limited")
)

// Error codes carried by *Error and returned to API clients
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Validation builds an INVALID_INPUT error wrapping ErrInvalidInput
func Validation(op, message string) *Error {
	return NewError(CodeInvalidInput, message, op, ErrInvalidInput)
}

// CodeOf returns the code for err, deriving one from the sentinel chain
// when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsVersionMismatch(err):
		return CodeVersionConflict
	case IsConflict(err):
		return CodeConflict
	case IsInvalidInput(err):
		return CodeInvalidInput
	case IsRateLimited(err):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// IsNotFound returns true if err represents a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if err represents a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput returns true if err represents an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsVersionMismatch returns true if err represents a version mismatch error
func IsVersionMismatch(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}

// IsRateLimited returns true if err represents a rate limit rejection
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
