// Package domain provides the canonical result and error types shared by the
// completion client, the backends and the presentation layers.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a failed completion call.
type ErrorType string

const (
	// ErrorTypeConnection indicates the backend could not be reached.
	ErrorTypeConnection ErrorType = "connection_error"

	// ErrorTypeTimeout indicates the call exceeded the configured timeout.
	ErrorTypeTimeout ErrorType = "timeout_error"

	// ErrorTypeBackend indicates a reachable backend answered with a non-success status.
	ErrorTypeBackend ErrorType = "backend_error"

	// ErrorTypeProtocol indicates a success status with a body that could not be understood.
	ErrorTypeProtocol ErrorType = "protocol_error"

	// ErrorTypeUnknown is the catch-all.
	ErrorTypeUnknown ErrorType = "unknown_error"

	// ErrorTypeInvalidRequest indicates caller input was rejected before any call was made.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// Error is the classified failure carried by a Result.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable detail
	Message string `json:"message"`

	// StatusCode is the backend HTTP status for ErrorTypeBackend, zero otherwise
	StatusCode int `json:"status_code,omitempty"`

	// Endpoint is the backend URL the call was aimed at (for diagnostics)
	Endpoint string `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the status a server should answer with when this
// error is surfaced to an HTTP client.
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeConnection:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeBackend, ErrorTypeProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new classified error.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WithStatusCode sets the backend status code.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithEndpoint records the endpoint the call was aimed at.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// WithCause attaches the underlying error for errors.Is / errors.As.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// Convenience constructors

// ErrConnection creates a connection error for the given endpoint.
func ErrConnection(endpoint string) *Error {
	return NewError(ErrorTypeConnection, "backend not reachable at "+endpoint).
		WithEndpoint(endpoint)
}

// ErrTimeout creates a timeout error for a wait of the given number of seconds.
func ErrTimeout(seconds float64) *Error {
	return NewError(ErrorTypeTimeout, fmt.Sprintf("exceeded %gs", seconds))
}

// ErrBackend creates an error for a non-success backend status.
func ErrBackend(statusCode int) *Error {
	return NewError(ErrorTypeBackend, fmt.Sprintf("backend returned status %d", statusCode)).
		WithStatusCode(statusCode)
}

// ErrProtocol creates an error for an unparseable success body.
func ErrProtocol(detail string) *Error {
	msg := "malformed response body"
	if detail != "" {
		msg += ": " + detail
	}
	return NewError(ErrorTypeProtocol, msg)
}

// ErrUnknown creates a catch-all error.
func ErrUnknown(detail string) *Error {
	return NewError(ErrorTypeUnknown, detail)
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *Error {
	return NewError(ErrorTypeInvalidRequest, message)
}

// AsError returns err as a *Error if it is one (or wraps one).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
