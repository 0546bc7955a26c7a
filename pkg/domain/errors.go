package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPipes is returned when a run is requested on a configuration without pipes.
var ErrNoPipes = errors.New("no pipes configured")

// ErrCheckpointExists is returned by init when a baseline is already recorded.
var ErrCheckpointExists = errors.New("checkpoint already exists")

// ConfigError represents a single configuration failure.
type ConfigError struct {
	Key    string // Dotted path of the offending field, e.g. "pipes[1].id"
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// NewConfigError is a shorthand for building a ConfigError.
func NewConfigError(key, reason string, value any) *ConfigError {
	return &ConfigError{Key: key, Reason: reason, Value: value}
}

// AggregateError represents multiple configuration failures found in one pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d configuration errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Collect returns nil for an empty list, the error itself for a single entry
// and an AggregateError otherwise. Nested aggregates are flattened.
func Collect(errs []error) error {
	var flat []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var agg *AggregateError
		if errors.As(err, &agg) {
			flat = append(flat, agg.Errors...)
			continue
		}
		flat = append(flat, err)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &AggregateError{Errors: flat}
}

// ConfigErrors returns all configuration errors carried by err.
func ConfigErrors(err error) []*ConfigError {
	var out []*ConfigError
	var agg *AggregateError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			out = append(out, ConfigErrors(e)...)
		}
		return out
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		out = append(out, ce)
	}
	return out
}

// ExecutionFailure is raised when a step fails or a run precondition is violated.
type ExecutionFailure struct {
	Step     string // Command text of the failing step, empty for precondition failures
	ExitCode int
	Err      error
}

func (e *ExecutionFailure) Error() string {
	if e.Step == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return "execution failed"
	}
	msg := fmt.Sprintf("step %q exited with code %d", firstLine(e.Step), e.ExitCode)
	if e.ExitCode == TimeoutExitCode {
		msg = fmt.Sprintf("step %q timed out", firstLine(e.Step))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Err
}

// PreconditionFailure wraps a sentinel as an ExecutionFailure without a step.
func PreconditionFailure(err error) *ExecutionFailure {
	return &ExecutionFailure{Err: err}
}

// StoreError reports a persistence failure in a checkpoint store.
type StoreError struct {
	Store string // Store type tag, e.g. "localfile"
	Op    string // "get" or "save"
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("checkpoint store %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
