// Package groq implements the cloud-chat backend against Groq's
// OpenAI-compatible Chat Completions API.
package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tjfontaine/polyglot-chatbot/internal/backend"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// Kind is the configuration identifier for this backend.
const Kind = config.KindGroq

const defaultBaseURL = config.DefaultGroqURL

// Option configures the backend.
type Option func(*Backend)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = httpClient
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// Backend talks to Groq through the go-openai client.
type Backend struct {
	client     *openai.Client
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ backend.Backend = (*Backend)(nil)

// New creates a Groq backend. An empty apiKey is accepted; Groq will answer
// 401 and the call is reported as a backend error.
func New(apiKey string, opts ...Option) *Backend {
	b := &Backend{
		baseURL: defaultBaseURL,
		model:   config.DefaultGroqModel,
	}
	for _, opt := range opts {
		opt(b)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = b.baseURL
	if b.httpClient != nil {
		cfg.HTTPClient = b.httpClient
	}
	b.client = openai.NewClientWithConfig(cfg)
	return b
}

// CreateFromConfig builds a Backend from configuration.
func CreateFromConfig(cfg config.BackendConfig, httpClient *http.Client) (backend.Backend, error) {
	opts := []Option{WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, WithHTTPClient(httpClient))
	}
	return New(cfg.APIKey, opts...), nil
}

// RegisterFactory registers the Groq backend factory.
func RegisterFactory() {
	if backend.IsRegistered(Kind) {
		return
	}
	backend.RegisterFactory(backend.Factory{
		Kind:        Kind,
		Description: "Groq cloud API (OpenAI-compatible /chat/completions)",
		Create:      CreateFromConfig,
	})
}

func (b *Backend) Name() string {
	return Kind
}

func (b *Backend) Endpoint() string {
	return b.baseURL
}

func (b *Backend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, b.mapError(err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (b *Backend) Generate(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	model := req.Model
	if model == "" {
		model = b.model
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, b.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.ErrProtocol("no choices in response").WithEndpoint(b.baseURL)
	}

	served := resp.Model
	if served == "" {
		served = model
	}
	choice := resp.Choices[0]
	return &backend.Response{
		Text:         choice.Message.Content,
		Model:        served,
		FinishReason: string(choice.FinishReason),
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// wireTemperature keeps an explicit 0 on the wire. go-openai drops a zero
// temperature as omitempty and Groq would then sample at its own default.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// mapError classifies what go-openai reports about the response itself.
// Transport errors are returned unchanged.
func (b *Backend) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		e := domain.ErrBackend(apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			e.Message = fmt.Sprintf("%s: %s", e.Message, apiErr.Message)
		}
		return e.WithEndpoint(b.baseURL).WithCause(err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return domain.ErrBackend(reqErr.HTTPStatusCode).WithEndpoint(b.baseURL).WithCause(err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.ErrProtocol(err.Error()).WithEndpoint(b.baseURL).WithCause(err)
	}

	// go-openai decodes a success body directly, so an empty or cut-off body
	// surfaces as a bare EOF. Transport failures arrive wrapped in *url.Error.
	var urlErr *url.Error
	if !errors.As(err, &urlErr) && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		return domain.ErrProtocol("empty or truncated response body").WithEndpoint(b.baseURL).WithCause(err)
	}

	return err
}
