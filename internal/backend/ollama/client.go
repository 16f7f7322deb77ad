// Package ollama implements the local-generate backend against a running
// Ollama daemon.
//
// Endpoints used:
//   - POST /api/generate: non-streaming single-prompt completion
//   - GET  /api/tags: availability probe and model listing
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

const (
	defaultBaseURL   = "http://localhost:11434"
	defaultUserAgent = "polyglot-chatbot/1.0"

	// maxErrorBody bounds how much of a failed response is kept in error messages.
	maxErrorBody = 512
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// Client is a minimal HTTP client for the Ollama REST API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new Ollama API client. An empty baseURL selects
// http://localhost:11434.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the daemon URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateRequest is the body of POST /api/generate.
//
// Temperature is sent both at the top level and inside options: the former
// is what the chatbot scripts always sent, the latter is what the daemon reads.
type GenerateRequest struct {
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt"`
	Stream      bool           `json:"stream"`
	Temperature float64        `json:"temperature"`
	Options     map[string]any `json:"options,omitempty"`
}

// GenerateResponse is the non-streaming answer of POST /api/generate.
// Response is a pointer so an absent field can be told apart from "".
type GenerateResponse struct {
	Model           string  `json:"model"`
	CreatedAt       string  `json:"created_at"`
	Response        *string `json:"response"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason,omitempty"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
	TotalDuration   int64   `json:"total_duration,omitempty"`
}

// TagsResponse is the answer of GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one locally available model.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// errorResponse is the body Ollama sends with non-success statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// Generate sends a non-streaming generate request.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	var result GenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrProtocol(err.Error()).WithEndpoint(c.baseURL).WithCause(err)
	}
	if result.Response == nil {
		return nil, domain.ErrProtocol("missing response field").WithEndpoint(c.baseURL)
	}

	return &result, nil
}

// Tags lists the models available to the daemon.
func (c *Client) Tags(ctx context.Context) (*TagsResponse, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}

	var result TagsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrProtocol(err.Error()).WithEndpoint(c.baseURL).WithCause(err)
	}
	return &result, nil
}

// do sends the request and returns the body of a 2xx response. Non-success
// statuses become a classified backend error; transport errors pass through.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ollama %s %s: build request: %w", method, path, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama %s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody).WithEndpoint(c.baseURL)
	}
	return respBody, nil
}

func statusError(code int, body []byte) *domain.Error {
	e := domain.ErrBackend(code)

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		e.Message = fmt.Sprintf("%s: %s", e.Message, apiErr.Error)
		return e
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		e.Message = fmt.Sprintf("%s: %s", e.Message, text)
	}
	return e
}
