// Package core provides the main Companion client for personal memory and
// escalation handling.
package core

import (
	"errors"
	"fmt"

	"github.com/carevoice/companion-go/pkg/escalation"
)

// Predefined errors for common failure scenarios.
var (
	// ErrValidation indicates bad or missing caller-supplied arguments.
	// Always recoverable; the call had no side effects.
	ErrValidation = errors.New("invalid argument")

	// ErrStorage indicates a durable-write failure. Fatal for the current
	// call; the operation must not claim success.
	ErrStorage = errors.New("storage operation failed")

	// ErrEscalationDelivery indicates the staff notification side effect
	// failed or timed out. The detection is already durably logged; only
	// the notify step failed.
	ErrEscalationDelivery = escalation.ErrDeliveryFailed

	// ErrNotFound indicates that a requested record or event was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CompanionError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
type CompanionError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "companion: <Op>: <Err>"
func (e *CompanionError) Error() string {
	return fmt.Sprintf("companion: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with CompanionError.
func (e *CompanionError) Unwrap() error {
	return e.Err
}

// NewError creates a new CompanionError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewError("AddInterest", err)
//	}
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CompanionError{
		Op:  op,
		Err: err,
	}
}

// validationError builds a wrapped ErrValidation with a reason.
func validationError(op, reason string) error {
	return NewError(op, fmt.Errorf("%w: %s", ErrValidation, reason))
}

// storageError builds a wrapped ErrStorage around a backend failure.
func storageError(op string, err error) error {
	return NewError(op, fmt.Errorf("%w: %v", ErrStorage, err))
}
