// Package config loads chatbot configuration from an optional YAML file,
// CHATBOT_-prefixed environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backend kinds.
const (
	KindOllama = "ollama"
	KindGroq   = "groq"
)

// Storage types.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2:latest"
	DefaultGroqURL     = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "mixtral-8x7b-32768"

	// DefaultGroqMaxTokens caps cloud completions. Ollama runs uncapped by default.
	DefaultGroqMaxTokens = 1024

	// DefaultConfigFile is read when no explicit path is given; it may be absent.
	DefaultConfigFile = "config.yaml"

	envPrefix = "CHATBOT_"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig holds the immutable connection parameters for one inference backend.
type BackendConfig struct {
	Kind         string        `koanf:"kind"`     // ollama, groq
	BaseURL      string        `koanf:"base_url"` // defaults depend on kind
	APIKey       string        `koanf:"api_key"`  // supports ${VAR} substitution
	Model        string        `koanf:"model"`    // defaults depend on kind
	Temperature  float64       `koanf:"temperature"`
	MaxTokens    int           `koanf:"max_tokens"`    // 0 leaves the limit to the backend
	Timeout      time.Duration `koanf:"timeout"`       // bounded wait for one generation
	ProbeTimeout time.Duration `koanf:"probe_timeout"` // bounded wait for metadata probes
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

var defaults = map[string]any{
	"server.host":             "localhost",
	"server.port":             5000,
	"server.shutdown_timeout": 30 * time.Second,
	"backend.kind":            KindOllama,
	"backend.temperature":     0.7,
	"backend.timeout":         300 * time.Second,
	"backend.probe_timeout":   5 * time.Second,
	"storage.type":            StorageMemory,
	"storage.sqlite.path":     "./data/chatbot.db",
	"telemetry.service_name":  "polyglot-chatbot",
	"log.level":               "info",
	"log.format":              "json",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load builds a Config. Sources are applied in increasing precedence: defaults,
// the YAML file at path (DefaultConfigFile when path is empty, in which case a
// missing file is fine), CHATBOT_ environment variables, then overrides keyed
// by dotted koanf path (e.g. "backend.kind").
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	filePath := path
	if filePath == "" {
		filePath = DefaultConfigFile
	}
	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		// Only an explicitly requested file has to exist
		if path != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for key, value := range overrides {
		k.Set(key, value)
	}

	// Conventional variables used by the upstream tools
	if !k.Exists("server.port") {
		if port := os.Getenv("PORT"); port != "" {
			k.Set("server.port", port)
		}
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Backend.APIKey = substituteEnvVars(cfg.Backend.APIKey)
	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	cfg.Backend.applyKindDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyKindDefaults fills in the fields whose defaults depend on the backend kind.
func (b *BackendConfig) applyKindDefaults() {
	switch b.Kind {
	case KindOllama:
		if b.BaseURL == "" {
			b.BaseURL = ollamaHostFromEnv()
		}
		if b.Model == "" {
			b.Model = DefaultOllamaModel
		}
	case KindGroq:
		if b.BaseURL == "" {
			b.BaseURL = DefaultGroqURL
		}
		if b.Model == "" {
			b.Model = DefaultGroqModel
		}
		if b.APIKey == "" {
			b.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if b.MaxTokens == 0 {
			b.MaxTokens = DefaultGroqMaxTokens
		}
	}
	b.BaseURL = strings.TrimSuffix(b.BaseURL, "/")
}

// ollamaHostFromEnv honors OLLAMA_HOST the way the ollama CLI does, accepting
// a bare host:port.
func ollamaHostFromEnv() string {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		return DefaultOllamaURL
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case KindOllama, KindGroq:
	default:
		return fmt.Errorf("unknown backend kind %q (want %s or %s)", c.Backend.Kind, KindOllama, KindGroq)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Backend.ProbeTimeout <= 0 {
		return fmt.Errorf("backend.probe_timeout must be positive, got %s", c.Backend.ProbeTimeout)
	}
	if c.Backend.Temperature < 0 || c.Backend.Temperature > 2 {
		return fmt.Errorf("backend.temperature must be within [0, 2], got %g", c.Backend.Temperature)
	}
	if c.Backend.MaxTokens < 0 {
		return fmt.Errorf("backend.max_tokens must not be negative, got %d", c.Backend.MaxTokens)
	}
	switch c.Storage.Type {
	case StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	// Port 0 asks the kernel for a free port.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// HasAPIKey reports whether a cloud credential is configured.
func (b BackendConfig) HasAPIKey() bool {
	return b.APIKey != ""
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
