package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the rxflow library

var (
	// ErrSchedulerClosed indicates a submission to a scheduler (or one of its
	// workers) after shutdown. It is never retryable.
	ErrSchedulerClosed = errors.New("scheduler is closed")

	// ErrQueueClosed indicates an operation on a closed task queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrUnknownScheduler indicates a registry lookup for a name that is not registered
	ErrUnknownScheduler = errors.New("unknown scheduler")

	// ErrRegistryInUse indicates an attempt to reconfigure a registry after first use
	ErrRegistryInUse = errors.New("registry already in use")

	// ErrTaskPanicked indicates that a task panicked while executing
	ErrTaskPanicked = errors.New("task panicked")

	// ErrTaskCancelled indicates that a task was cancelled before it started
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrProducerFailure wraps failures raised by a pipeline producer
	ErrProducerFailure = errors.New("producer failure")

	// ErrConsumerFailure wraps failures raised by a pipeline consumer
	ErrConsumerFailure = errors.New("consumer failure")

	// ErrAlreadyStarted indicates a second Start on a pipeline
	ErrAlreadyStarted = errors.New("pipeline already started")

	// ErrTerminated is returned to a producer emitting after the pipeline terminated
	ErrTerminated = errors.New("pipeline terminated")

	// ErrCancelled is returned to a producer emitting after the pipeline was cancelled
	ErrCancelled = errors.New("pipeline cancelled")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError describes an invalid constructor or configuration argument.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsTerminal returns true if the error reports that a pipeline has already
// reached a terminal state, either through completion, failure or cancellation.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminated) || errors.Is(err, ErrCancelled)
}
