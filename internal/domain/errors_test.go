package domain

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error with type and message",
			err:      ErrConnection("http://localhost:11434"),
			expected: "connection_error: backend not reachable at http://localhost:11434",
		},
		{
			name:     "error with status code",
			err:      ErrBackend(500),
			expected: "backend_error (status 500): backend returned status 500",
		},
		{
			name:     "timeout in seconds",
			err:      ErrTimeout(300),
			expected: "timeout_error: exceeded 300s",
		},
		{
			name:     "fractional timeout",
			err:      ErrTimeout(0.05),
			expected: "timeout_error: exceeded 0.05s",
		},
		{
			name:     "protocol without detail",
			err:      ErrProtocol(""),
			expected: "protocol_error: malformed response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected int
	}{
		{name: "invalid request", err: ErrInvalidRequest("Empty message"), expected: http.StatusBadRequest},
		{name: "connection", err: ErrConnection("x"), expected: http.StatusServiceUnavailable},
		{name: "timeout", err: ErrTimeout(1), expected: http.StatusGatewayTimeout},
		{name: "backend", err: ErrBackend(500), expected: http.StatusBadGateway},
		{name: "protocol", err: ErrProtocol(""), expected: http.StatusBadGateway},
		{name: "unknown", err: ErrUnknown("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", ErrBackend(404))

	e, ok := AsError(wrapped)
	if !ok {
		t.Fatal("AsError() did not find wrapped *Error")
	}
	if e.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", e.StatusCode)
	}

	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("AsError() matched a plain error")
	}
}

func TestError_Unwrap(t *testing.T) {
	err := ErrConnection("http://localhost:1").WithCause(syscall.ECONNREFUSED)
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("errors.Is() should reach the cause")
	}
}

func TestResult_OK(t *testing.T) {
	if !Success("4").OK() {
		t.Error("Success().OK() = false")
	}
	if Failure(ErrUnknown("x")).OK() {
		t.Error("Failure().OK() = true")
	}
}
