// Package backend defines the inference backend capability and the factory
// registry used to build one from configuration.
//
// # Adding a New Backend
//
// Implement Backend in its own package and expose an explicit registration
// function that calls RegisterFactory. Wire it from internal/registration so
// we avoid init() side effects.
//
//	func RegisterFactory() {
//	    if backend.IsRegistered(Kind) {
//	        return
//	    }
//	    backend.RegisterFactory(backend.Factory{
//	        Kind:        Kind,
//	        Description: "...",
//	        Create:      CreateFromConfig,
//	    })
//	}
package backend

import (
	"context"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// Backend is one inference service speaking its own wire format.
//
// Implementations return a *domain.Error for conditions they can classify
// from the response itself (non-success status, malformed body). Transport
// failures are returned as-is and classified by the caller.
type Backend interface {
	// Name identifies the backend kind, e.g. "ollama".
	Name() string

	// Endpoint is the base URL calls are sent to.
	Endpoint() string

	// ListModels performs the lightweight metadata request and returns the
	// model identifiers it reports.
	ListModels(ctx context.Context) ([]string, error)

	// Generate performs exactly one completion request.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request is a single-prompt completion request. History is never replayed.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response is the raw backend answer before trimming.
type Response struct {
	Text         string
	Model        string
	FinishReason string
	Usage        domain.Usage
}
