// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrRowRejected = &Error{Code: "ROW_REJECTED", Message: "row rejected"}
	ErrNoData      = &Error{Code: "NO_DATA", Message: "no data available"}

	// Source errors
	ErrSourceFetch    = &Error{Code: "SOURCE_FETCH_FAILED", Message: "source fetch failed"}
	ErrSourceNotFound = &Error{Code: "SOURCE_NOT_FOUND", Message: "source not found"}
	ErrSyncFailed     = &Error{Code: "SYNC_FAILED", Message: "every source failed to sync"}

	// Request errors
	ErrInvalidRequest = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrJobNotFound    = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrAnswerUnavailable = &Error{Code: "ANSWER_UNAVAILABLE", Message: "answer unavailable"}
	ErrLLMFailed         = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout        = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)
