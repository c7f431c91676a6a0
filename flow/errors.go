package flow

import (
	"fmt"
	"net/http"
)

// Error codes returned in JSON error bodies
const (
	ErrorCodeBadRequest    = "bad_request"
	ErrorCodeUnauthorized  = "unauthorized"
	ErrorCodeNotFound      = "not_found"
	ErrorCodeUpstreamError = "upstream_error"
	ErrorCodeConfigError   = "config_error"
	ErrorCodeInternalError = "internal_error"
)

// Error represents an API error with an associated HTTP status
type Error struct {
	Code    string // machine-readable error code (e.g., "bad_request")
	Message string // human-readable error description
	Status  int    // HTTP status code
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new API error
func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common errors as reusable constructors
var (
	// ErrBadRequest indicates the request is malformed or carries conflicting credentials
	ErrBadRequest = func(msg string) *Error {
		return NewError(ErrorCodeBadRequest, msg, http.StatusBadRequest)
	}

	// ErrUnauthorized indicates missing or invalid credentials
	ErrUnauthorized = func(msg string) *Error {
		return NewError(ErrorCodeUnauthorized, msg, http.StatusUnauthorized)
	}

	// ErrNotFound indicates an expired, consumed, or unknown resource
	ErrNotFound = func(msg string) *Error {
		return NewError(ErrorCodeNotFound, msg, http.StatusNotFound)
	}

	// ErrUpstream indicates a non-2xx response from the partner API,
	// passed through with the upstream status
	ErrUpstream = func(msg string, status int) *Error {
		return NewError(ErrorCodeUpstreamError, msg, status)
	}

	// ErrConfig indicates OAuth was invoked without the required configuration
	ErrConfig = func(msg string) *Error {
		return NewError(ErrorCodeConfigError, msg, http.StatusInternalServerError)
	}

	// ErrInternal indicates an unexpected server-side failure
	ErrInternal = func(msg string) *Error {
		return NewError(ErrorCodeInternalError, msg, http.StatusInternalServerError)
	}
)
