package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced by stores and pipeline operations.
var (
	// ErrNotFound indicates that a question or batch identifier does not
	// resolve. Handlers map it to 404; it is never silently substituted.
	ErrNotFound = errors.New("not found")

	// ErrNoOutput is returned by ingestion when a batch exposes no output
	// resource. Callers treat it as "nothing to ingest yet", not a failure.
	ErrNoOutput = errors.New("batch output not available")
)

// ValidationError represents malformed operator input when creating or
// editing a question. It can carry multiple failures and is rejected
// before persistence with a descriptive message.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}

// ServiceError wraps a failure from the external batch service during
// submit, refresh, or output fetch. Such failures are not retried by the
// pipeline; they propagate to the caller, which owns retry policy.
type ServiceError struct {
	// Op is the service operation that failed.
	Op string

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("batch service %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError creates a ServiceError for the given operation.
func NewServiceError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Err: err}
}
