// Package completion turns a prompt into exactly one backend call and
// normalizes whatever comes back into a domain.Result.
//
// The Client never returns a Go error and never retries. Callers that keep a
// transcript go through Session, which records an exchange only when the call
// succeeded.
package completion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tjfontaine/polyglot-chatbot/internal/backend"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
	"github.com/tjfontaine/polyglot-chatbot/internal/tokens"
)

const (
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1024
	DefaultTimeout      = 300 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

var tracer = otel.Tracer("github.com/tjfontaine/polyglot-chatbot/internal/completion")

// Option configures a Client.
type Option func(*Client)

// WithDefaultTemperature sets the temperature used when a call gives none.
func WithDefaultTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithDefaultMaxTokens sets the completion token limit used when a call gives none.
func WithDefaultMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithTimeout bounds each Generate call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithProbeTimeout bounds each metadata request.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.probeTimeout = d
	}
}

// WithLogger sets the logger for call outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokenCounter sets the counter used when a backend omits usage.
// A nil counter leaves usage as reported.
func WithTokenCounter(counter *tokens.Counter) Option {
	return func(c *Client) {
		c.counter = counter
	}
}

// Client is safe for concurrent use; it holds no per-call state.
type Client struct {
	backend      backend.Backend
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger
	counter      *tokens.Counter
}

// New creates a Client for b.
func New(b backend.Backend, opts ...Option) *Client {
	c := &Client{
		backend:      b,
		temperature:  DefaultTemperature,
		maxTokens:    DefaultMaxTokens,
		timeout:      DefaultTimeout,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default(),
		counter:      tokens.NewCounter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the backend the client calls.
func (c *Client) Backend() backend.Backend {
	return c.backend
}

// Timeout returns the per-call generation timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// CheckAvailability reports whether the backend answered the metadata
// request with a success status. A body that fails to parse still counts:
// the daemon is up even if the listing is unusable.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	_, err := c.Models(ctx)
	return err == nil || err.Type == domain.ErrorTypeProtocol
}

// ListModels returns the backend's model names, or an empty slice when the
// request fails for any reason.
func (c *Client) ListModels(ctx context.Context) []string {
	models, err := c.Models(ctx)
	if err != nil {
		return []string{}
	}
	return models
}

// Models is ListModels with the failure classified.
func (c *Client) Models(ctx context.Context) ([]string, *domain.Error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	models, err := c.backend.ListModels(ctx)
	if err != nil {
		derr := classify(ctx, err, c.backend.Endpoint(), c.probeTimeout)
		c.logger.Debug("model listing failed",
			slog.String("backend", c.backend.Name()),
			slog.String("error_type", string(derr.Type)),
			slog.String("error", derr.Message),
		)
		return nil, derr
	}
	if models == nil {
		models = []string{}
	}
	return models, nil
}

// CallOption overrides a client default for one Generate call.
type CallOption func(*backend.Request)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(r *backend.Request) {
		r.Temperature = t
	}
}

// WithMaxTokens overrides the completion token limit.
func WithMaxTokens(n int) CallOption {
	return func(r *backend.Request) {
		r.MaxTokens = n
	}
}

// WithModel overrides the backend's default model.
func WithModel(model string) CallOption {
	return func(r *backend.Request) {
		r.Model = model
	}
}

// Generate sends prompt to the backend once and classifies the outcome.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...CallOption) domain.Result {
	start := time.Now()

	if strings.TrimSpace(prompt) == "" {
		return domain.Failure(domain.ErrInvalidRequest("Empty message"))
	}

	req := &backend.Request{
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, opt := range opts {
		opt(req)
	}

	ctx, span := tracer.Start(ctx, "completion.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("backend", c.backend.Name()),
		attribute.String("model", req.Model),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.Generate(ctx, req)
	if err != nil {
		derr := classify(ctx, err, c.backend.Endpoint(), c.timeout)
		span.SetStatus(codes.Error, derr.Error())
		result := domain.Failure(derr)
		result.Model = req.Model
		result.Duration = time.Since(start)

		c.logger.Warn("completion failed",
			slog.String("backend", c.backend.Name()),
			slog.String("error_type", string(derr.Type)),
			slog.Int("status_code", derr.StatusCode),
			slog.String("error", derr.Message),
			slog.Duration("duration", result.Duration),
		)
		return result
	}

	text := strings.TrimSpace(resp.Text)
	result := domain.Success(text)
	result.Model = resp.Model
	result.Usage = resp.Usage
	if c.counter != nil {
		result.Usage = c.counter.Fill(resp.Usage, prompt, text)
	}
	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.String("served_model", result.Model),
		attribute.Int("prompt_tokens", result.Usage.PromptTokens),
		attribute.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	c.logger.Debug("completion succeeded",
		slog.String("backend", c.backend.Name()),
		slog.String("model", result.Model),
		slog.Int("prompt_tokens", result.Usage.PromptTokens),
		slog.Int("completion_tokens", result.Usage.CompletionTokens),
		slog.Duration("duration", result.Duration),
	)
	return result
}
