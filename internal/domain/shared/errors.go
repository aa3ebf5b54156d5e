// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "learner", "attempt", "badge"
	Op      string // Operation that failed, e.g., "Create", "Apply"
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

// Learner domain errors
var (
	ErrLearnerNotFound      = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrLearnerAlreadyExists = NewDomainError("learner", "Create", ErrAlreadyExists, "learner already exists")
	ErrInvalidLearnerID     = NewDomainError("learner", "Validate", ErrInvalidID, "invalid learner ID")
	ErrInvalidDisplayName   = NewDomainError("learner", "Validate", ErrInvalidInput, "invalid display name")
)

// Attempt domain errors
var (
	ErrAttemptNotFound     = NewDomainError("attempt", "Find", ErrNotFound, "attempt not found")
	ErrInvalidContentRef   = NewDomainError("attempt", "Validate", ErrEmptyValue, "content reference is required")
	ErrScoreOutOfRange     = NewDomainError("attempt", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrDuplicateSubmission = NewDomainError("attempt", "Record", ErrAlreadyProcessed, "submission already recorded")
)

// Progress domain errors
var (
	ErrUnknownSkill       = NewDomainError("progress", "Validate", ErrInvalidInput, "unknown skill")
	ErrInvalidWeekday     = NewDomainError("progress", "Validate", ErrValueOutOfRange, "weekday index must be between 0 and 6")
	ErrMasteryOutOfRange  = NewDomainError("progress", "Validate", ErrValueOutOfRange, "mastery must be between 0 and 100")
	ErrProgressNotFound   = NewDomainError("progress", "Find", ErrNotFound, "progress not found")
	ErrWeeklyslotNotFound = NewDomainError("progress", "FindWeekly", ErrNotFound, "weekly slot not found")
)

// Badge domain errors
var (
	ErrBadgeNotFound       = NewDomainError("badge", "Find", ErrNotFound, "badge not found")
	ErrBadgeAlreadyAwarded = NewDomainError("badge", "Award", ErrAlreadyExists, "badge already awarded")
	ErrUnknownBadge        = NewDomainError("badge", "Validate", ErrInvalidID, "unknown badge ID")
)

// External scoring oracle errors
var (
	ErrOracleUnavailable     = NewDomainError("oracle", "Score", ErrServiceUnavailable, "scoring oracle is unavailable")
	ErrOracleTimeout         = NewDomainError("oracle", "Score", ErrTimeout, "scoring oracle request timeout")
	ErrOracleRateLimited     = NewDomainError("oracle", "Score", ErrRateLimited, "scoring oracle rate limit exceeded")
	ErrOracleInvalidResponse = NewDomainError("oracle", "Parse", ErrInvalidFormat, "invalid response from scoring oracle")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
