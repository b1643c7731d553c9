package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Strategos framework errors.
type ErrorCode string

// Planner error codes
const (
	PLANNER_INVALID_INPUT     ErrorCode = "PLANNER_INVALID_INPUT"
	PLANNER_VALIDATION_FAILED ErrorCode = "PLANNER_VALIDATION_FAILED"
)

// Replanner error codes
const (
	REPLAN_INVALID_FAILURE   ErrorCode = "REPLAN_INVALID_FAILURE"
	REPLAN_INVALID_PLAN      ErrorCode = "REPLAN_INVALID_PLAN"
	REPLAN_MISSING_STATE     ErrorCode = "REPLAN_MISSING_STATE"
	REPLAN_EMITTER_CLOSED    ErrorCode = "REPLAN_EMITTER_CLOSED"
	RECOVERY_STEP_FAILED     ErrorCode = "RECOVERY_STEP_FAILED"
	RECOVERY_NO_CHECKPOINT   ErrorCode = "RECOVERY_NO_CHECKPOINT"
	RECOVERY_AGENT_NOT_FOUND ErrorCode = "RECOVERY_AGENT_NOT_FOUND"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// StrategosError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type StrategosError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *StrategosError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *StrategosError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a StrategosError with the same Code.
func (e *StrategosError) Is(target error) bool {
	var serr *StrategosError
	if errors.As(target, &serr) {
		return e.Code == serr.Code
	}
	return false
}

// NewError creates a new non-retryable StrategosError with the given code and message.
func NewError(code ErrorCode, message string) *StrategosError {
	return &StrategosError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable StrategosError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., resource contention).
func NewRetryableError(code ErrorCode, message string) *StrategosError {
	return &StrategosError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable StrategosError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *StrategosError {
	return &StrategosError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}
