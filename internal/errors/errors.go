package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of dashboard failure
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Feed errors
	ErrCodeFeedUnavailable  ErrorCode = "FEED_UNAVAILABLE"
	ErrCodeFeedBadStatus    ErrorCode = "FEED_BAD_STATUS"
	ErrCodeFeedDecodeFailed ErrorCode = "FEED_DECODE_FAILED"

	// Simulation errors
	ErrCodeNoAliveBackends ErrorCode = "NO_ALIVE_BACKENDS"
	ErrCodeDrawFailed      ErrorCode = "DRAW_FAILED"

	// Authority errors
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// DashboardError is a structured error carrying the failing component and
// the underlying cause
type DashboardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *DashboardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Component, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Is matches any DashboardError with the same code
func (e *DashboardError) Is(target error) bool {
	if t, ok := target.(*DashboardError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *DashboardError) WithMetadata(key string, value interface{}) *DashboardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsRetryable reports whether the next poll might succeed without operator action
func (e *DashboardError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeFeedUnavailable, ErrCodeFeedBadStatus:
		return true
	default:
		return false
	}
}

// HTTPStatusCode maps the error to a response status for the authority API
func (e *DashboardError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case ErrCodeNoAliveBackends, ErrCodeFeedUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeFeedBadStatus:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new DashboardError
func NewError(code ErrorCode, component, message string) *DashboardError {
	return &DashboardError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorWithCause creates a new DashboardError with an underlying cause
func NewErrorWithCause(code ErrorCode, component, message string, cause error) *DashboardError {
	e := NewError(code, component, message)
	e.Cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// WrapError wraps err, returning nil when err is nil
func WrapError(err error, code ErrorCode, component, message string) *DashboardError {
	if err == nil {
		return nil
	}
	return NewErrorWithCause(code, component, message, err)
}

// NewFeedUnavailableError creates an error for a feed that could not be reached
func NewFeedUnavailableError(url string, cause error) *DashboardError {
	return NewErrorWithCause(
		ErrCodeFeedUnavailable,
		"feed",
		fmt.Sprintf("feed %s is unreachable", url),
		cause,
	).WithMetadata("url", url)
}

// NewFeedBadStatusError creates an error for a non-2xx feed response
func NewFeedBadStatusError(url string, status int) *DashboardError {
	return NewError(
		ErrCodeFeedBadStatus,
		"feed",
		fmt.Sprintf("feed %s returned status %d", url, status),
	).WithMetadata("url", url).WithMetadata("status", status)
}

// NewNoAliveBackendsError creates an error when no backend can take traffic
func NewNoAliveBackendsError() *DashboardError {
	return NewError(
		ErrCodeNoAliveBackends,
		"router",
		"no alive backends",
	)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(reason string) *DashboardError {
	return NewError(
		ErrCodeAuthenticationFailed,
		"auth",
		fmt.Sprintf("authentication failed: %s", reason),
	).WithMetadata("reason", reason)
}

// IsDashboardError checks if an error is a DashboardError
func IsDashboardError(err error) bool {
	var dErr *DashboardError
	return errors.As(err, &dErr)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var dErr *DashboardError
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var dErr *DashboardError
	if errors.As(err, &dErr) {
		return dErr.IsRetryable()
	}
	return false
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var dErr *DashboardError
	if errors.As(err, &dErr) {
		return dErr.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}
