package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Errorf("decode request: %v", err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	const endpoint = "http://localhost:11434"
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name     string
		err      error
		wantType domain.ErrorType
		wantMsg  string
	}{
		{
			name:     "classified error passes through",
			err:      domain.ErrBackend(404),
			wantType: domain.ErrorTypeBackend,
			wantMsg:  "backend returned status 404",
		},
		{
			name:     "connection refused",
			err:      fmt.Errorf("ollama POST /api/generate: %w", refused),
			wantType: domain.ErrorTypeConnection,
			wantMsg:  "backend not reachable at " + endpoint,
		},
		{
			name:     "dns failure",
			err:      &net.DNSError{Err: "no such host", Name: "ollama.invalid", IsNotFound: true},
			wantType: domain.ErrorTypeConnection,
		},
		{
			name:     "net timeout",
			err:      timeoutErr{},
			wantType: domain.ErrorTypeTimeout,
			wantMsg:  "exceeded 300s",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("wrapped: %w", context.Canceled),
			wantType: domain.ErrorTypeUnknown,
			wantMsg:  "request cancelled",
		},
		{
			name:     "anything else",
			err:      errors.New("tls: bad certificate"),
			wantType: domain.ErrorTypeUnknown,
			wantMsg:  "tls: bad certificate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(context.Background(), tt.err, endpoint, 300*time.Second)
			if got.Type != tt.wantType {
				t.Errorf("classify() type = %v, want %v", got.Type, tt.wantType)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("classify() message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestClassify_ExpiredContextWins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	// A body read cut short by the deadline surfaces as a protocol error from
	// the backend; the expired deadline still makes it a timeout.
	got := classify(ctx, domain.ErrProtocol("unexpected EOF"), "http://x", 2*time.Second)
	if got.Type != domain.ErrorTypeTimeout || got.Message != "exceeded 2s" {
		t.Errorf("classify() = %v, want timeout_error: exceeded 2s", got)
	}
}
