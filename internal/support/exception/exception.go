// Package exception provides the custom error types used throughout the
// ordersink pipeline. It standardizes errors raised during ingestion so that
// callers can classify them by retry and skip policy.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// PipelineError is a custom error type raised during batch ingestion.
// It holds the module where the error occurred, a message, the wrapped
// original error, and flags indicating whether it is retryable or skippable.
type PipelineError struct {
	// Module indicates the module where the error occurred (e.g., "reader", "transform", "loader", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewPipelineError creates a new PipelineError instance.
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// isSkippable: Whether this error is skippable.
// isRetryable: Whether this error is retryable.
func NewPipelineError(module, message string, originalErr error, isSkippable, isRetryable bool) *PipelineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// NewPipelineErrorf creates a new PipelineError instance using a format string.
// Optional flags and an error are extracted from the end of the variadic
// arguments 'a' in the order: [isSkippable bool], [isRetryable bool],
// [originalErr error]. The remaining arguments are used for fmt.Sprintf.
//
// Examples:
// NewPipelineErrorf("loader", "upsert failed for batch %s", "2024-01-05", true, sql.ErrTxDone)
// -> message: "upsert failed for batch 2024-01-05", isRetryable: true, originalErr: sql.ErrTxDone
func NewPipelineErrorf(module, format string, a ...interface{}) *PipelineError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	// Check arguments from the end and extract error, isRetryable, isSkippable in order.
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	message := fmt.Sprintf(format, args...)

	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
// It returns the error's module, message, and the string representation of the original error.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *PipelineError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *PipelineError) IsSkippable() bool {
	return e.isSkippable
}

// IsPipelineError determines if the given error is of type PipelineError.
func IsPipelineError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	return errors.As(err, &pe)
}

// IsTemporary determines if an error is temporary (e.g., network error,
// temporary DB connection issue). If it's a PipelineError, its IsRetryable
// flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// IsFatal determines if an error is fatal (cannot be retried or skipped).
// If it's a PipelineError, its flags take precedence.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return !pe.IsRetryable() && !pe.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied")
}

// ExtractErrorMessage extracts the error message string from an error.
// For PipelineError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// ErrBatchQualityFailure is the sentinel error raised when the share of
// rejected records in a batch exceeds the configured ceiling. A run that
// hits it aborts before any row is written to the warehouse.
var ErrBatchQualityFailure = errors.New("batch rejection rate exceeded the configured quality threshold")

// ErrOptimisticLockingFailure indicates a concurrent update to a run
// execution row. It is neither retryable nor skippable.
var ErrOptimisticLockingFailure = errors.New("optimistic locking failure")

// NewOptimisticLockingFailure creates a PipelineError wrapping
// ErrOptimisticLockingFailure. The error is treated as fatal.
func NewOptimisticLockingFailure(module, message string, originalErr error) *PipelineError {
	errToWrap := ErrOptimisticLockingFailure
	if originalErr != nil {
		errToWrap = errors.Join(ErrOptimisticLockingFailure, originalErr)
	}
	return NewPipelineError(module, message, errToWrap, false, false)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic
// locking failure.
func IsOptimisticLockingFailure(err error) bool {
	return errors.Is(err, ErrOptimisticLockingFailure)
}
