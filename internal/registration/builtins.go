package registration

import (
	"github.com/tjfontaine/polyglot-chatbot/internal/backend/groq"
	"github.com/tjfontaine/polyglot-chatbot/internal/backend/ollama"
)

// RegisterBuiltins registers the built-in backends explicitly.
// This replaces init-based side effects and is intended to be called from
// the CLI and tests before building a backend from configuration.
func RegisterBuiltins() {
	ollama.RegisterFactory()
	groq.RegisterFactory()
}
