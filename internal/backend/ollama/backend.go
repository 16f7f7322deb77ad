package ollama

import (
	"context"
	"net/http"

	"github.com/tjfontaine/polyglot-chatbot/internal/backend"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// Kind is the configuration identifier for this backend.
const Kind = config.KindOllama

// Backend adapts Client to backend.Backend.
type Backend struct {
	client *Client
	model  string
}

var _ backend.Backend = (*Backend)(nil)

// New creates a Backend whose requests default to model.
func New(client *Client, model string) *Backend {
	return &Backend{client: client, model: model}
}

// CreateFromConfig builds a Backend from configuration.
func CreateFromConfig(cfg config.BackendConfig, httpClient *http.Client) (backend.Backend, error) {
	var opts []ClientOption
	if httpClient != nil {
		opts = append(opts, WithHTTPClient(httpClient))
	}
	return New(NewClient(cfg.BaseURL, opts...), cfg.Model), nil
}

// RegisterFactory registers the Ollama backend factory.
func RegisterFactory() {
	if backend.IsRegistered(Kind) {
		return
	}
	backend.RegisterFactory(backend.Factory{
		Kind:        Kind,
		Description: "Local Ollama daemon (/api/generate)",
		Create:      CreateFromConfig,
	})
}

func (b *Backend) Name() string {
	return Kind
}

func (b *Backend) Endpoint() string {
	return b.client.BaseURL()
}

func (b *Backend) ListModels(ctx context.Context) ([]string, error) {
	tags, err := b.client.Tags(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (b *Backend) Generate(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	model := req.Model
	if model == "" {
		model = b.model
	}

	resp, err := b.client.Generate(ctx, &GenerateRequest{
		Model:       model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		Options:     buildOptions(req),
	})
	if err != nil {
		return nil, err
	}

	served := resp.Model
	if served == "" {
		served = model
	}
	return &backend.Response{
		Text:         *resp.Response,
		Model:        served,
		FinishReason: resp.DoneReason,
		Usage: domain.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		},
	}, nil
}

// buildOptions converts request fields into the Ollama options map.
func buildOptions(req *backend.Request) map[string]any {
	opts := map[string]any{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	return opts
}
