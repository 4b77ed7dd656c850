package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for planning and
// orchestration failures.
type ErrorCode string

// Validation error codes
const (
	VALIDATION_FAILED     ErrorCode = "VALIDATION_FAILED"
	UNKNOWN_PLAN_TYPE     ErrorCode = "UNKNOWN_PLAN_TYPE"
	INVALID_TASK_DURATION ErrorCode = "INVALID_TASK_DURATION"
)

// Graph error codes
const (
	DEPENDENCY_CYCLE   ErrorCode = "DEPENDENCY_CYCLE"
	MISSING_DEPENDENCY ErrorCode = "MISSING_DEPENDENCY"
)

// Lookup error codes
const (
	PLAN_NOT_FOUND ErrorCode = "PLAN_NOT_FOUND"
	TASK_NOT_FOUND ErrorCode = "TASK_NOT_FOUND"
)

// Routing error codes
const (
	// TEAM_UNAVAILABLE is returned when the chosen team is at its
	// concurrency limit or its endpoint circuit is open.
	TEAM_UNAVAILABLE ErrorCode = "TEAM_UNAVAILABLE"
)

// Persistence error codes
const (
	PERSISTENCE_FAILED  ErrorCode = "PERSISTENCE_FAILED"
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
)

// Service error codes
const (
	ANALYSIS_FAILED ErrorCode = "ANALYSIS_FAILED"
	QUEUE_FULL      ErrorCode = "QUEUE_FULL"
	SERVICE_CLOSED  ErrorCode = "SERVICE_CLOSED"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// WorkflowError is a structured error carrying an error code, a message,
// a retryability hint, and an optional cause. It supports errors.Is/As
// matching by code.
type WorkflowError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if a cause exists.
func (e *WorkflowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// Is matches two WorkflowErrors by error code.
func (e *WorkflowError) Is(target error) bool {
	var werr *WorkflowError
	if errors.As(target, &werr) {
		return e.Code == werr.Code
	}
	return false
}

// NewError creates a non-retryable WorkflowError.
func NewError(code ErrorCode, message string) *WorkflowError {
	return &WorkflowError{Code: code, Message: message}
}

// NewRetryableError creates a retryable WorkflowError. Use for transient
// failures such as storage timeouts.
func NewRetryableError(code ErrorCode, message string) *WorkflowError {
	return &WorkflowError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable WorkflowError wrapping cause.
func WrapError(code ErrorCode, message string, cause error) *WorkflowError {
	return &WorkflowError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or empty string when err is not
// a WorkflowError.
func CodeOf(err error) ErrorCode {
	var werr *WorkflowError
	if errors.As(err, &werr) {
		return werr.Code
	}
	return ""
}

// IsRetryable reports whether err is a WorkflowError marked retryable.
func IsRetryable(err error) bool {
	var werr *WorkflowError
	return errors.As(err, &werr) && werr.Retryable
}
