package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func TestCoordinatorError_ErrorFormat(t *testing.T) {
	inner := errors.New("connection reset")
	err := exception.NewSystemFaultError("dispatch", "record store unavailable", inner)

	assert.Equal(t, "[dispatch] record store unavailable: connection reset", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))

	bare := exception.NewValidationError("planner", "batch size must be positive", nil)
	assert.Equal(t, "[planner] batch size must be positive", bare.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, exception.KindValidation,
		exception.KindOf(exception.NewValidationError("config", "bad", nil)))
	assert.Equal(t, exception.KindResourceExhaustion,
		exception.KindOf(exception.NewResourceExhaustionError("dispatch", "pool full", nil)))
	assert.Equal(t, exception.KindConcurrencyConflict,
		exception.KindOf(exception.NewConcurrencyConflictError("queue", "claim lost", nil)))

	// Wrapped CoordinatorErrors keep their kind through the chain.
	wrapped := fmt.Errorf("tick failed: %w", exception.NewValidationError("coordinator", "bad edge", nil))
	assert.Equal(t, exception.KindValidation, exception.KindOf(wrapped))

	// Foreign errors default to SYSTEM_FAULT; nil has no kind.
	assert.Equal(t, exception.KindSystemFault, exception.KindOf(errors.New("unexpected")))
	assert.Equal(t, exception.ErrorKind(""), exception.KindOf(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, exception.NewConcurrencyConflictError("queue", "claim lost", nil).IsRetryable())
	assert.False(t, exception.NewValidationError("config", "bad", nil).IsRetryable())
	assert.False(t, exception.NewOptimisticLockingFailureException("repo", "version raced", nil).IsRetryable())
}

func TestIsOptimisticLockingFailure(t *testing.T) {
	err := exception.NewOptimisticLockingFailureException("repo", "version raced", nil)
	assert.True(t, exception.IsOptimisticLockingFailure(err))

	wrapped := fmt.Errorf("save failed: %w", err)
	assert.True(t, exception.IsOptimisticLockingFailure(wrapped))

	assert.False(t, exception.IsOptimisticLockingFailure(errors.New("other")))
	assert.False(t, exception.IsOptimisticLockingFailure(nil))

	// A locking failure is also a concurrency conflict by kind, but not by sentinel.
	assert.Equal(t, exception.KindConcurrencyConflict, exception.KindOf(err))
	assert.False(t, exception.IsConcurrencyConflict(err))
}

func TestIsConcurrencyConflict(t *testing.T) {
	err := exception.NewConcurrencyConflictError("queue", "claim lost", errors.New("row locked"))
	assert.True(t, exception.IsConcurrencyConflict(err))
	assert.True(t, errors.Is(err, exception.ErrConcurrencyConflict))
	// The original cause survives the sentinel join.
	assert.Contains(t, err.Error(), "row locked")

	assert.False(t, exception.IsConcurrencyConflict(errors.New("other")))
}

func TestIsTemporaryAndIsFatal(t *testing.T) {
	retryable := exception.NewConcurrencyConflictError("queue", "claim lost", nil)
	assert.True(t, exception.IsTemporary(retryable))
	assert.False(t, exception.IsFatal(retryable))

	fault := exception.NewSystemFaultError("coordinator", "state log corrupt", nil)
	assert.False(t, exception.IsTemporary(fault))
	assert.True(t, exception.IsFatal(fault))

	// Plain errors fall back to message heuristics.
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: i/o timeout")))
	assert.True(t, exception.IsFatal(errors.New("open config: permission denied")))
	assert.False(t, exception.IsTemporary(nil))
	assert.False(t, exception.IsFatal(nil))
}

func TestIsErrorOfType(t *testing.T) {
	assert.True(t, exception.IsErrorOfType(exception.ErrPoolExhausted, "ResourcePoolExhausted"))

	wrapped := fmt.Errorf("reserve budget: %w", exception.ErrPoolExhausted)
	assert.True(t, exception.IsErrorOfType(wrapped, "ResourcePoolExhausted"))

	// Type-name and substring matching both work for foreign errors.
	assert.True(t, exception.IsErrorOfType(errors.New("unexpected EOF while reading"), "EOF"))
	assert.False(t, exception.IsErrorOfType(errors.New("fine"), "ResourcePoolExhausted"))
	assert.False(t, exception.IsErrorOfType(nil, "ResourcePoolExhausted"))
}

func TestRegisterErrorType(t *testing.T) {
	sentinel := errors.New("UpstreamThrottled")
	exception.RegisterErrorType("UpstreamThrottled", sentinel)
	assert.True(t, exception.IsErrorTypeRegistered("UpstreamThrottled"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("call: %w", sentinel), "UpstreamThrottled"))

	assert.Panics(t, func() { exception.RegisterErrorType("", sentinel) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil-proto", nil) })
}

func TestExtractErrorMessage(t *testing.T) {
	ce := exception.NewSystemFaultError("dispatch", "record store unavailable", errors.New("connection reset"))
	assert.Equal(t, "record store unavailable", exception.ExtractErrorMessage(ce))
	assert.Equal(t, "plain failure", exception.ExtractErrorMessage(errors.New("plain failure")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}
