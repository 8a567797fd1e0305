package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/ordersink/internal/support/exception"
)

func TestNewPipelineError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	// NewPipelineError signature is (module, message, originalErr, isSkippable, isRetryable)
	pe := exception.NewPipelineError("loader", "failed to connect", originalErr, false, true)

	assert.Equal(t, "loader", pe.Module)
	assert.Equal(t, "failed to connect", pe.Message)
	assert.Equal(t, originalErr, pe.Unwrap())
	assert.True(t, pe.IsRetryable())
	assert.False(t, pe.IsSkippable())
	assert.Contains(t, pe.Error(), "[loader] failed to connect: db connection refused")
	assert.NotEmpty(t, pe.StackTrace)
}

func TestNewPipelineErrorf(t *testing.T) {
	// Only message args.
	pe1 := exception.NewPipelineErrorf("reader", "row %d malformed", 10)
	assert.False(t, pe1.IsRetryable())
	assert.False(t, pe1.IsSkippable())
	assert.Nil(t, pe1.Unwrap())
	assert.Contains(t, pe1.Error(), "[reader] row 10 malformed")

	// A single trailing bool is isRetryable.
	pe2 := exception.NewPipelineErrorf("loader", "timeout occurred", true)
	assert.True(t, pe2.IsRetryable())
	assert.False(t, pe2.IsSkippable())

	// Two trailing bools are (isSkippable, isRetryable).
	pe3 := exception.NewPipelineErrorf("quarantine", "export failed for row %d", 5, true, false)
	assert.False(t, pe3.IsRetryable())
	assert.True(t, pe3.IsSkippable())

	// Trailing error is the wrapped original.
	originalErr := errors.New("io error")
	pe4 := exception.NewPipelineErrorf("reader", "read failed", originalErr)
	assert.Equal(t, originalErr, pe4.Unwrap())

	// Full set: (isSkippable, isRetryable, originalErr).
	pe5 := exception.NewPipelineErrorf("loader", "lock contention", true, true, originalErr)
	assert.True(t, pe5.IsRetryable())
	assert.True(t, pe5.IsSkippable())
	assert.Equal(t, originalErr, pe5.Unwrap())
}

func TestIsPipelineError(t *testing.T) {
	pe := exception.NewPipelineError("loader", "boom", nil, false, false)

	assert.True(t, exception.IsPipelineError(pe))
	assert.True(t, exception.IsPipelineError(fmt.Errorf("wrapped: %w", pe)))
	assert.False(t, exception.IsPipelineError(errors.New("plain")))
	assert.False(t, exception.IsPipelineError(nil))
}

func TestIsTemporaryAndIsFatal(t *testing.T) {
	retryableErr := exception.NewPipelineError("loader", "timeout", errors.New("timeout"), false, true)
	assert.True(t, exception.IsTemporary(retryableErr))
	assert.False(t, exception.IsFatal(retryableErr))

	fatalErr := exception.NewPipelineError("config", "invalid format", errors.New("invalid"), false, false)
	assert.False(t, exception.IsTemporary(fatalErr))
	assert.True(t, exception.IsFatal(fatalErr))

	skippableErr := exception.NewPipelineError("quarantine", "bad record", errors.New("bad record"), true, false)
	assert.False(t, exception.IsTemporary(skippableErr))
	assert.False(t, exception.IsFatal(skippableErr))

	// Plain errors fall back to keyword matching.
	assert.True(t, exception.IsTemporary(errors.New("connection timeout")))
	assert.True(t, exception.IsFatal(errors.New("permission denied")))
}

func TestExtractErrorMessage(t *testing.T) {
	pe := exception.NewPipelineError("loader", "upsert failed", errors.New("deadlock"), false, true)
	assert.Equal(t, "upsert failed", exception.ExtractErrorMessage(pe))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}

func TestOptimisticLockingFailure(t *testing.T) {
	pe := exception.NewOptimisticLockingFailure("repository", "version mismatch", nil)

	assert.False(t, pe.IsRetryable())
	assert.False(t, pe.IsSkippable())
	assert.True(t, exception.IsOptimisticLockingFailure(pe))
	assert.Contains(t, pe.Error(), "version mismatch")

	wrapped := exception.NewOptimisticLockingFailure("repository", "update failed", errors.New("race"))
	assert.True(t, exception.IsOptimisticLockingFailure(wrapped))
	assert.False(t, exception.IsOptimisticLockingFailure(errors.New("other")))
}

func TestBatchQualityFailureSentinel(t *testing.T) {
	wrapped := fmt.Errorf("run aborted: %w", exception.ErrBatchQualityFailure)
	assert.True(t, errors.Is(wrapped, exception.ErrBatchQualityFailure))
}
