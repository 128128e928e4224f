// Package apperrors holds the error types that cross package boundaries
// and the process exit codes they map to. Every type unwraps to its cause
// so that errors.Is and errors.As see through it.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess       = 0
	ExitErrorGeneric  = 1
	ExitErrorTimeout  = 2
	ExitErrorMismatch = 3 // backends or a saved output disagree
	ExitErrorConfig   = 4
	ExitErrorInput    = 5 // sources or visibilities missing or malformed
	ExitErrorCanceled = 130
)

// ExitCode maps err to a process exit code. Context errors take
// precedence over the type of the error wrapping them.
func ExitCode(err error) int {
	var inputErr InputError
	var configErr ConfigError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	case errors.As(err, &inputErr):
		return ExitErrorInput
	case errors.As(err, &configErr):
		return ExitErrorConfig
	default:
		return ExitErrorGeneric
	}
}

// ConfigError is an invalid flag, environment value or config file entry.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError formats a ConfigError message with fmt.Sprintf.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ExtractionError reports a failed visibility extraction. Backend names the
// execution strategy; Unit is the failing work unit for the task-scheduled
// backend, or -1 when the failure is not tied to a unit.
type ExtractionError struct {
	Backend string
	Unit    int
	Cause   error
}

// NewExtractionError wraps cause for the given backend and work unit.
func NewExtractionError(backend string, unit int, cause error) error {
	return ExtractionError{Backend: backend, Unit: unit, Cause: cause}
}

// Error returns a message naming the backend, the unit if any, and the cause.
func (e ExtractionError) Error() string {
	if e.Unit >= 0 {
		return fmt.Sprintf("%s extraction failed in unit %d: %v", e.Backend, e.Unit, e.Cause)
	}
	return fmt.Sprintf("%s extraction failed: %v", e.Backend, e.Cause)
}

// Unwrap returns the original cause.
func (e ExtractionError) Unwrap() error { return e.Cause }

// InputError reports that sources or visibilities could not be loaded or
// synthesized. The extraction core is never invoked after an InputError.
type InputError struct {
	// Path is the file involved, empty for synthesized data.
	Path  string
	Cause error
}

// NewInputError wraps cause with the offending path.
func NewInputError(path string, cause error) error {
	return InputError{Path: path, Cause: cause}
}

// Error returns the error message for an InputError.
func (e InputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("input %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("input: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e InputError) Unwrap() error { return e.Cause }

// ServerError is a failure of the HTTP server itself, such as a port that
// cannot be bound or a shutdown that does not drain in time.
type ServerError struct {
	Message string
	Cause   error
}

func (e ServerError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError returns a ServerError; cause may be nil.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// ValidationError rejects an argument of an extraction call, such as an
// output buffer whose length does not match the visibility count.
type ValidationError struct {
	Field   string
	Message string
	// Value is the rejected value, if useful for diagnostics.
	Value any
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
}

// NewValidationError returns a ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}
