package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks the conventional variables Load falls back to so the host
// environment cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "OLLAMA_HOST", "GROQ_API_KEY", "CHATBOT_SERVER__PORT", "CHATBOT_BACKEND__KIND", "CHATBOT_BACKEND__MODEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 5000 {
			t.Errorf("Load() port = %v, want 5000", cfg.Server.Port)
		}
		if cfg.Backend.Kind != KindOllama {
			t.Errorf("Load() kind = %q, want %q", cfg.Backend.Kind, KindOllama)
		}
		if cfg.Backend.BaseURL != DefaultOllamaURL {
			t.Errorf("Load() base url = %q, want %q", cfg.Backend.BaseURL, DefaultOllamaURL)
		}
		if cfg.Backend.Model != DefaultOllamaModel {
			t.Errorf("Load() model = %q, want %q", cfg.Backend.Model, DefaultOllamaModel)
		}
		if cfg.Backend.Temperature != 0.7 {
			t.Errorf("Load() temperature = %v, want 0.7", cfg.Backend.Temperature)
		}
		if cfg.Backend.MaxTokens != 0 {
			t.Errorf("Load() max tokens = %d, want 0 (no limit for ollama)", cfg.Backend.MaxTokens)
		}
		if cfg.Backend.Timeout != 300*time.Second {
			t.Errorf("Load() timeout = %v, want 5m", cfg.Backend.Timeout)
		}
		if cfg.Backend.ProbeTimeout != 5*time.Second {
			t.Errorf("Load() probe timeout = %v, want 5s", cfg.Backend.ProbeTimeout)
		}
		if cfg.Storage.Type != StorageMemory {
			t.Errorf("Load() storage = %q, want memory", cfg.Storage.Type)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHATBOT_SERVER__PORT", "9000")

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
	})

	t.Run("PORT fallback", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8081")

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 8081 {
			t.Errorf("Load() port = %v, want 8081", cfg.Server.Port)
		}
	})

	t.Run("groq defaults from override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GROQ_API_KEY", "gsk-test")

		cfg, err := Load("", map[string]any{"backend.kind": "groq"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Backend.BaseURL != DefaultGroqURL {
			t.Errorf("Load() base url = %q, want %q", cfg.Backend.BaseURL, DefaultGroqURL)
		}
		if cfg.Backend.Model != DefaultGroqModel {
			t.Errorf("Load() model = %q, want %q", cfg.Backend.Model, DefaultGroqModel)
		}
		if cfg.Backend.APIKey != "gsk-test" {
			t.Errorf("Load() api key = %q, want gsk-test", cfg.Backend.APIKey)
		}
		if cfg.Backend.MaxTokens != DefaultGroqMaxTokens {
			t.Errorf("Load() max tokens = %d, want %d", cfg.Backend.MaxTokens, DefaultGroqMaxTokens)
		}
	})

	t.Run("OLLAMA_HOST without scheme", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Backend.BaseURL != "http://10.0.0.5:11434" {
			t.Errorf("Load() base url = %q", cfg.Backend.BaseURL)
		}
	})

	t.Run("yaml file with env substitution", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MY_GROQ_KEY", "from-env")

		path := filepath.Join(t.TempDir(), "chatbot.yaml")
		data := `
server:
  port: 7000
backend:
  kind: groq
  api_key: ${MY_GROQ_KEY}
  model: llama-3.1-8b-instant
  timeout: 45s
  base_url: https://example.test/v1/
`
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path, nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("port = %d, want 7000", cfg.Server.Port)
		}
		if cfg.Backend.APIKey != "from-env" {
			t.Errorf("api key = %q, want from-env", cfg.Backend.APIKey)
		}
		if cfg.Backend.Model != "llama-3.1-8b-instant" {
			t.Errorf("model = %q", cfg.Backend.Model)
		}
		if cfg.Backend.Timeout != 45*time.Second {
			t.Errorf("timeout = %v, want 45s", cfg.Backend.Timeout)
		}
		if cfg.Backend.BaseURL != "https://example.test/v1" {
			t.Errorf("base url = %q, trailing slash should be trimmed", cfg.Backend.BaseURL)
		}
	})

	t.Run("explicit missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
			t.Error("Load() expected error for missing explicit file")
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 5000},
			Backend: BackendConfig{Kind: KindOllama, Temperature: 0.7, MaxTokens: 1024, Timeout: time.Minute, ProbeTimeout: time.Second},
			Storage: StorageConfig{Type: StorageMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown kind", mutate: func(c *Config) { c.Backend.Kind = "bard" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Backend.Timeout = 0 }, wantErr: true},
		{name: "zero probe timeout", mutate: func(c *Config) { c.Backend.ProbeTimeout = 0 }, wantErr: true},
		{name: "temperature too high", mutate: func(c *Config) { c.Backend.Temperature = 2.5 }, wantErr: true},
		{name: "zero max tokens means no limit", mutate: func(c *Config) { c.Backend.MaxTokens = 0 }},
		{name: "negative max tokens", mutate: func(c *Config) { c.Backend.MaxTokens = -1 }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "redis" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "ephemeral port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "groq without key is allowed", mutate: func(c *Config) { c.Backend.Kind = KindGroq }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
