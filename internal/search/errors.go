package search

import "fmt"

// ConfigurationError means the subsystem cannot run at all: disabled, or a
// required credential is missing. Surfaced to the caller.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("search configuration error: %s", e.Reason)
}

// ValidationError means the query itself is malformed or out of bounds.
// Surfaced to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid search query: %s", e.Reason)
}

// ExecutionError means every provider in the resolved order either failed or
// was unregistered. Carries the last underlying error.
type ExecutionError struct {
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search execution failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("search execution failed: %s", e.Reason)
}

// Unwrap returns the last underlying provider error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
