package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/polyglot-chatbot/internal/backend"
	"github.com/tjfontaine/polyglot-chatbot/internal/completion"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/registration"
	"github.com/tjfontaine/polyglot-chatbot/internal/telemetry"
	"github.com/tjfontaine/polyglot-chatbot/internal/tokens"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript/memory"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript/sqlite"
)

const rule = "============================================================"
const thinRule = "------------------------------------------------------------"

// loadConfig applies the persistent flags, and any command-specific extras,
// as the highest-precedence config source.
func (o *rootOptions) loadConfig(extra map[string]any) (*config.Config, error) {
	overrides := map[string]any{}
	if o.backend != "" {
		overrides["backend.kind"] = o.backend
	}
	if o.model != "" {
		overrides["backend.model"] = o.model
	}
	if o.url != "" {
		overrides["backend.base_url"] = o.url
	}
	if o.logLevel != "" {
		overrides["log.level"] = o.logLevel
	}
	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.Load(o.configPath, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// interactiveLogger writes text logs to w. Unless a level was asked for
// explicitly, only warnings and above are shown so logs stay out of the REPL.
func (o *rootOptions) interactiveLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.logLevel != "" {
		level = parseLevel(cfg.Log.Level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// serviceLogger follows log.format and log.level.
func serviceLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newClient builds the completion client for cfg.Backend.
func newClient(cfg *config.Config, logger *slog.Logger) (*completion.Client, error) {
	registration.RegisterBuiltins()

	var httpClient *http.Client
	if cfg.Telemetry.Enabled {
		httpClient = telemetry.HTTPClient()
	}

	b, err := backend.New(cfg.Backend, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return completion.New(b,
		completion.WithDefaultTemperature(cfg.Backend.Temperature),
		completion.WithDefaultMaxTokens(cfg.Backend.MaxTokens),
		completion.WithTimeout(cfg.Backend.Timeout),
		completion.WithProbeTimeout(cfg.Backend.ProbeTimeout),
		completion.WithLogger(logger),
		completion.WithTokenCounter(tokens.NewCounter()),
	), nil
}

// newSession builds a client plus the transcript configured by cfg.Storage.
func newSession(cfg *config.Config, logger *slog.Logger) (*completion.Session, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return completion.NewSession(client, transcript.New(store, logger)), nil
}

func openStore(cfg config.StorageConfig) (transcript.Store, error) {
	switch cfg.Type {
	case config.StorageSQLite:
		store, err := sqlite.New(cfg.SQLite.Path, "")
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript store: %w", err)
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

// displayName is the human name of a backend kind.
func displayName(kind string) string {
	switch kind {
	case config.KindGroq:
		return "Groq"
	case config.KindOllama:
		return "Ollama"
	default:
		return kind
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// printSetupHints prints what to do when the backend cannot be reached.
func printSetupHints(w io.Writer, cfg *config.Config) {
	if cfg.Backend.Kind == config.KindGroq {
		fmt.Fprintln(w, "\nPlease check your Groq setup:")
		fmt.Fprintln(w, "1. Create a free API key at https://console.groq.com/keys")
		fmt.Fprintln(w, "2. Export it: export GROQ_API_KEY=your-key")
		fmt.Fprintf(w, "3. API Key configured: %s\n", yesNo(cfg.Backend.HasAPIKey()))
		return
	}
	fmt.Fprintln(w, "\nPlease make sure Ollama is running:")
	fmt.Fprintln(w, "1. Download from: https://ollama.ai/")
	fmt.Fprintln(w, "2. Install and start Ollama")
	fmt.Fprintf(w, "3. Run: ollama pull %s  (or your preferred model)\n", cfg.Backend.Model)
	fmt.Fprintln(w, "4. Run: ollama serve")
}

// readLines delivers trimmed input lines until r is exhausted, then closes
// the channel. The reader goroutine is abandoned if ctx ends first.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit":
		return true
	}
	return false
}
