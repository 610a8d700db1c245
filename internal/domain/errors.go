package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while aggregating a factor stream.
var (
	// ErrMalformedEvent indicates that a stream event had the wrong shape or
	// carried a factor that violates the domain invariants.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrStreamFinalized indicates that a partial event arrived after the
	// job's final event. The event is ignored.
	ErrStreamFinalized = errors.New("stream already finalized")

	// ErrDisposed indicates that the aggregator or cache was torn down and
	// no longer accepts mutations.
	ErrDisposed = errors.New("disposed")
)

// EventError represents a recoverable failure to apply a stream event.
// The aggregator state is unchanged when an EventError is returned.
type EventError struct {
	// Type is the event type that failed, if it could be determined.
	Type EventType

	// Err is the underlying error that caused the event to be dropped.
	Err error
}

// Error implements the error interface for EventError.
func (e *EventError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("event error: err=%v", e.Err)
	}
	return fmt.Sprintf("event error: type=%s, err=%v", e.Type, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *EventError) Unwrap() error { return e.Err }

// NewEventError creates a new EventError for the given event type.
func NewEventError(eventType EventType, err error) *EventError {
	return &EventError{
		Type: eventType,
		Err:  err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
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
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
