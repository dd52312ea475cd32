package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCanceled is returned by Execute when the context is canceled before
// every session started. Sessions that never started are reported with
// StatusCanceled.
var ErrCanceled = errors.New("execution canceled")

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidModel indicates a nil or structurally unusable model.
	ErrCodeInvalidModel ConfigErrorCode = "INVALID_MODEL"

	// ErrCodeInvalidRuns indicates a run count below 1.
	ErrCodeInvalidRuns ConfigErrorCode = "INVALID_RUNS"

	// ErrCodeInvalidTimesteps indicates a negative timestep count.
	ErrCodeInvalidTimesteps ConfigErrorCode = "INVALID_TIMESTEPS"

	// ErrCodeEmptyState indicates an initial state with no variables.
	ErrCodeEmptyState ConfigErrorCode = "EMPTY_STATE"

	// ErrCodeEmptySweep indicates a sweepable parameter with no candidates.
	ErrCodeEmptySweep ConfigErrorCode = "EMPTY_SWEEP"

	// ErrCodeDuplicateName indicates two blocks, or two functions in one
	// block, sharing a name.
	ErrCodeDuplicateName ConfigErrorCode = "DUPLICATE_NAME"

	// ErrCodeMissingFunction indicates a policy, update or reducer that is nil.
	ErrCodeMissingFunction ConfigErrorCode = "MISSING_FUNCTION"

	// ErrCodeUnknownVariable indicates a state update returning a variable
	// name absent from the state snapshot.
	ErrCodeUnknownVariable ConfigErrorCode = "UNKNOWN_VARIABLE"

	// ErrCodeDuplicateTarget indicates two state updates in one block
	// targeting the same variable.
	ErrCodeDuplicateTarget ConfigErrorCode = "DUPLICATE_TARGET"
)

// ConfigError is a model configuration error.
//
// Configuration errors are fatal to the whole execution and are raised
// before any session runs. Block, Function and Variable are set when the
// error can be pinned to them.
type ConfigError struct {
	Code     ConfigErrorCode
	Message  string
	Block    string
	Function string
	Variable string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var where []string
	if e.Block != "" {
		where = append(where, "block="+e.Block)
	}
	if e.Function != "" {
		where = append(where, "function="+e.Function)
	}
	if e.Variable != "" {
		where = append(where, "variable="+e.Variable)
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(where, ", "))
}

// ErrorKind identifies which stage of a substep failed.
type ErrorKind string

const (
	KindPolicy      ErrorKind = "policy"
	KindUpdate      ErrorKind = "update"
	KindAggregation ErrorKind = "aggregation"
)

// ExecutionError is a failure raised while a session was running.
//
// It fails only its own session. For KindAggregation, Function holds the
// signal name whose reducer failed.
type ExecutionError struct {
	Run      int
	Subset   int
	Timestep int
	Substep  int
	Block    string
	Function string
	Kind     ErrorKind
	Err      error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %q failed in block %q (run=%d, subset=%d, timestep=%d, substep=%d): %v",
		e.Kind, e.Function, e.Block, e.Run, e.Subset, e.Timestep, e.Substep, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// AggregationError reports a reducer that failed for one signal.
type AggregationError struct {
	Signal string
	Err    error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate signal %q: %v", e.Signal, e.Err)
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is or wraps a ConfigError.
// Uses errors.As to handle wrapped and joined errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsExecutionError returns true if err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
