// Package core holds the error and status types shared by the setup pipeline.
package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: app_not_found, tunnel_start, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (path, app name, identifier)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code, so that
// errors.Is(err, core.ErrAppNotFound) holds for derived copies.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with fmt.Sprintf formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}

	// Data errors
	ErrMalformedCapabilities = &ExecutionError{
		Category: ErrCategoryData,
		Code:     "malformed_capabilities",
		Message:  "capability document is malformed",
	}
	ErrInvalidAppUpload = &ExecutionError{
		Category: ErrCategoryData,
		Code:     "invalid_app_upload",
		Message:  "app upload response is invalid",
	}
	ErrAppNotFound = &ExecutionError{
		Category: ErrCategoryData,
		Code:     "app_not_found",
		Message:  "app is not uploaded to the device farm",
	}

	// Remote errors
	ErrRemoteCall = &ExecutionError{
		Category: ErrCategoryRemote,
		Code:     "remote_call",
		Message:  "device farm request failed",
	}
	ErrInventoryFetch = &ExecutionError{
		Category: ErrCategoryRemote,
		Code:     "inventory_fetch",
		Message:  "failed to fetch device inventory",
	}
	ErrSessionFailed = &ExecutionError{
		Category: ErrCategoryRemote,
		Code:     "session_failed",
		Message:  "remote test session failed",
	}

	// Process errors
	ErrTunnelStart = &ExecutionError{
		Category: ErrCategoryProcess,
		Code:     "tunnel_start",
		Message:  "error starting secure tunnel",
	}
	ErrTunnelStop = &ExecutionError{
		Category: ErrCategoryProcess,
		Code:     "tunnel_stop",
		Message:  "exception in stopping secure tunnel",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
