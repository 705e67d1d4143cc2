// Package exception provides custom error types and error handling utilities for Pacer.
// It standardizes errors raised during coordination so they can be categorized by
// kind and routed through retry, skip, and dead-letter policies.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// ErrorKind classifies a CoordinatorError for propagation policy decisions.
type ErrorKind string

const (
	// KindValidation marks malformed candidate or plan data; the offending task is dropped.
	KindValidation ErrorKind = "VALIDATION"
	// KindResourceExhaustion marks a resource pool at capacity; the task is infeasible, non-fatal.
	KindResourceExhaustion ErrorKind = "RESOURCE_EXHAUSTION"
	// KindConcurrencyConflict marks claim contention or a reservation race; skip and retry later.
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
	// KindTransientExecution marks an executor-reported transient failure; requeue with backoff.
	KindTransientExecution ErrorKind = "TRANSIENT_EXECUTION"
	// KindPermanentFailure marks retries exhausted; the item is dead-lettered for human review.
	KindPermanentFailure ErrorKind = "PERMANENT_FAILURE"
	// KindSystemFault marks an unexpected internal fault; the tick aborts into ERROR_RECOVERY.
	KindSystemFault ErrorKind = "SYSTEM_FAULT"
)

// errorRegistry maps error names referenced in configuration to concrete Go error instances.
// It holds error instances (singletons) for comparison using errors.Is.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers an error type in the registry.
// Registered error types are referenced by name in configuration and by the
// IsErrorOfType function for error classification.
//
// If prototype is nil or name is empty, this function panics.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks if the specified error type name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// CoordinatorError is a custom error type raised during coordination.
// It holds the component where the error occurred, a message, the wrapped
// original error, a kind for propagation policy, and a retryable flag.
type CoordinatorError struct {
	// Component indicates where the error occurred (e.g., "scheduler", "dispatch", "queue").
	Component string
	// Message is a concise description of the error.
	Message string
	// Kind classifies the error for propagation policy.
	Kind ErrorKind
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// StackTrace is the stack trace at the time of the error.
	StackTrace string
}

// NewCoordinatorError creates a new CoordinatorError instance.
func NewCoordinatorError(component, message string, kind ErrorKind, originalErr error, isRetryable bool) *CoordinatorError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &CoordinatorError{
		Component:   component,
		Message:     message,
		Kind:        kind,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  string(buf[:n]),
	}
}

// NewValidationError creates a CoordinatorError of kind KindValidation.
func NewValidationError(component, message string, originalErr error) *CoordinatorError {
	return NewCoordinatorError(component, message, KindValidation, originalErr, false)
}

// NewResourceExhaustionError creates a CoordinatorError of kind KindResourceExhaustion.
func NewResourceExhaustionError(component, message string, originalErr error) *CoordinatorError {
	return NewCoordinatorError(component, message, KindResourceExhaustion, originalErr, false)
}

// NewConcurrencyConflictError creates a CoordinatorError of kind KindConcurrencyConflict.
// The sentinel ErrConcurrencyConflict is joined so callers can detect the class with errors.Is.
func NewConcurrencyConflictError(component, message string, originalErr error) *CoordinatorError {
	var errToWrap error
	if originalErr != nil {
		errToWrap = errors.Join(ErrConcurrencyConflict, originalErr)
	} else {
		errToWrap = ErrConcurrencyConflict
	}
	return NewCoordinatorError(component, message, KindConcurrencyConflict, errToWrap, true)
}

// NewSystemFaultError creates a CoordinatorError of kind KindSystemFault.
func NewSystemFaultError(component, message string, originalErr error) *CoordinatorError {
	return NewCoordinatorError(component, message, KindSystemFault, originalErr, false)
}

// OptimisticLockingFailureException is a constant naming an optimistic locking failure.
const OptimisticLockingFailureException = "OptimisticLockingFailureException"

// NewOptimisticLockingFailureException creates a CoordinatorError indicating an
// optimistic locking failure. Two concurrent writers raced on the same row; the
// loser must re-read and retry at a higher level rather than blindly reapply.
func NewOptimisticLockingFailureException(component, message string, originalErr error) *CoordinatorError {
	var errToWrap error
	if originalErr != nil {
		errToWrap = errors.Join(ErrOptimisticLockingFailure, originalErr)
	} else {
		errToWrap = ErrOptimisticLockingFailure
	}
	return NewCoordinatorError(component, message, KindConcurrencyConflict, errToWrap, false)
}

// Error implements the error interface.
func (e *CoordinatorError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Component, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Component, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *CoordinatorError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *CoordinatorError) IsRetryable() bool {
	return e.isRetryable
}

// KindOf extracts the ErrorKind from an error chain.
// Errors that are not CoordinatorErrors are classified as KindSystemFault.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *CoordinatorError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindSystemFault
}

// IsCoordinatorError determines if the given error is of type CoordinatorError.
func IsCoordinatorError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*CoordinatorError)
	return ok
}

// IsTemporary determines if an error is temporary (e.g., network error, claim contention).
// If it is a CoordinatorError, its IsRetryable flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CoordinatorError); ok {
		return ce.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF")
}

// IsFatal determines if an error is fatal (cannot be retried).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CoordinatorError); ok {
		return !ce.IsRetryable() && ce.Kind == KindSystemFault
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "data corruption")
}

// IsErrorOfType checks if an error matches a specified type name (string).
// errorTypeName can be a Go error type name (e.g., "*net.OpError"), a registered
// sentinel name, or a substring of an error message.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()

	if ok {
		if errors.Is(err, targetError) {
			return true
		}
	}

	currentErr := err
	for currentErr != nil {
		if strings.Contains(currentErr.Error(), errorTypeName) {
			return true
		}

		errType := reflect.TypeOf(currentErr)
		if errType != nil {
			if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
				return true
			}
		}

		currentErr = errors.Unwrap(currentErr)
	}

	return false
}

// ErrOptimisticLockingFailure is a sentinel error indicating an optimistic locking failure.
var ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)

// ErrConcurrencyConflict is a sentinel error indicating claim contention or a reservation race.
var ErrConcurrencyConflict = errors.New("ConcurrencyConflict")

// ErrPoolExhausted is a sentinel error indicating a resource pool has no remaining headroom.
var ErrPoolExhausted = errors.New("ResourcePoolExhausted")

func init() {
	// Register sentinel errors so that errors.Is can detect them by constant name.
	RegisterErrorType(OptimisticLockingFailureException, ErrOptimisticLockingFailure)
	RegisterErrorType("ConcurrencyConflict", ErrConcurrencyConflict)
	RegisterErrorType("ResourcePoolExhausted", ErrPoolExhausted)

	// Common network-related error names referenced in configuration.
	RegisterErrorType("io.EOF", errors.New("io.EOF"))
	RegisterErrorType("net.OpError", errors.New("net.OpError"))
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)

	// Common database-related error names.
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsConcurrencyConflict determines if an error indicates claim contention or a reservation race.
func IsConcurrencyConflict(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConcurrencyConflict)
}

// ExtractErrorMessage extracts the error message string from an error.
// For CoordinatorError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CoordinatorError); ok {
		return ce.Message
	}
	return err.Error()
}
