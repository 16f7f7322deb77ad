package completion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript"
)

// Session pairs a Client with the transcript its successful calls are
// recorded in.
type Session struct {
	client     *Client
	transcript *transcript.Transcript
}

// NewSession creates a Session.
func NewSession(client *Client, tr *transcript.Transcript) *Session {
	return &Session{client: client, transcript: tr}
}

// Client returns the underlying completion client.
func (s *Session) Client() *Client {
	return s.client
}

// Transcript returns the session transcript.
func (s *Session) Transcript() *transcript.Transcript {
	return s.transcript
}

// Chat generates a response to prompt and, on success, appends the exchange.
// A failure to record the exchange does not turn a successful call into a
// failed one; the transcript logs it.
func (s *Session) Chat(ctx context.Context, prompt string, opts ...CallOption) domain.Result {
	result := s.client.Generate(ctx, prompt, opts...)
	if !result.OK() {
		return result
	}

	s.transcript.Append(ctx, domain.Exchange{ //nolint:errcheck
		ID:        uuid.New().String(),
		User:      prompt,
		Bot:       result.Text,
		Model:     result.Model,
		Usage:     result.Usage,
		CreatedAt: time.Now(),
	})
	return result
}
