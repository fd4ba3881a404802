// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
// They form the engine's error taxonomy:
//
//   - ErrValidation: malformed or out-of-range input
//   - ErrNotFound: unknown badge/challenge/template/user id
//   - ErrConflict: duplicate-award race, recoverable by treating as success
//   - ErrStore: transient persistence failure, caller should retry with backoff
//   - ErrComputation: catalog misconfiguration, fatal and not retryable
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStore       = errors.New("store error")
	ErrComputation = errors.New("computation error")

	// Refinements of ErrValidation
	ErrInvalidID       = errors.New("invalid ID")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "prayer", "progression", "badge", "challenge"
	Op      string // Operation that failed, e.g., "Award", "Generate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// StoreError marks an underlying persistence failure as transient.
func StoreError(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStore, "record store failure", err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a duplicate/race conflict.
// Conflicts on award paths are recoverable: the row already exists.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
// Only store failures are transient; computation errors are configuration
// defects and retrying them cannot help.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsFatal checks if the error indicates a configuration defect.
func IsFatal(err error) bool {
	return errors.Is(err, ErrComputation)
}
