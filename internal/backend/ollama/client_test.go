package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/polyglot-chatbot/internal/backend"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
	"github.com/tjfontaine/polyglot-chatbot/internal/testutil"
)

func TestClient_Generate_Replay(t *testing.T) {
	recorder, cleanup := testutil.NewVCRRecorder(t, "ollama_generate")
	defer cleanup()

	c := NewClient("http://localhost:11434", WithHTTPClient(testutil.VCRHTTPClient(recorder)))

	resp, err := c.Generate(context.Background(), &GenerateRequest{
		Model:       "llama3.2:latest",
		Prompt:      "What is 2+2?",
		Temperature: 0.7,
		Options:     map[string]any{"temperature": 0.7},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Response == nil || *resp.Response != " 4 " {
		t.Errorf("Generate() response = %v, want %q", resp.Response, " 4 ")
	}
	if resp.PromptEvalCount != 31 || resp.EvalCount != 2 {
		t.Errorf("Generate() counts = %d/%d, want 31/2", resp.PromptEvalCount, resp.EvalCount)
	}
}

func TestBackend_ListModels_Replay(t *testing.T) {
	recorder, cleanup := testutil.NewVCRRecorder(t, "ollama_tags")
	defer cleanup()

	b := New(NewClient("http://localhost:11434", WithHTTPClient(testutil.VCRHTTPClient(recorder))), "llama3.2:latest")

	models, err := b.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	want := []string{"llama3.2:latest", "gemma3:4b"}
	if len(models) != len(want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("ListModels()[%d] = %q, want %q", i, models[i], want[i])
		}
	}
}

func TestClient_Generate_RequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gemma3:4b","response":"hi","done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	b := New(NewClient(srv.URL), "llama3.2:latest")
	resp, err := b.Generate(context.Background(), &backend.Request{
		Model:       "gemma3:4b",
		Prompt:      "hello",
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "hi" || resp.Model != "gemma3:4b" {
		t.Errorf("Generate() = %+v", resp)
	}

	if got["model"] != "gemma3:4b" {
		t.Errorf("model = %v", got["model"])
	}
	if got["prompt"] != "hello" {
		t.Errorf("prompt = %v", got["prompt"])
	}
	if got["stream"] != false {
		t.Errorf("stream = %v, want false", got["stream"])
	}
	if got["temperature"] != 0.2 {
		t.Errorf("temperature = %v, want 0.2", got["temperature"])
	}
	opts, _ := got["options"].(map[string]any)
	if opts["temperature"] != 0.2 {
		t.Errorf("options.temperature = %v, want 0.2", opts["temperature"])
	}
	if _, ok := opts["num_predict"]; ok {
		t.Error("num_predict should be omitted when MaxTokens is zero")
	}
}

func TestBackend_Generate_DefaultModel(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		model = req.Model
		w.Write([]byte(`{"response":"ok","done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	b := New(NewClient(srv.URL), "llama3.2:latest")
	resp, err := b.Generate(context.Background(), &backend.Request{Prompt: "x", MaxTokens: 64})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if model != "llama3.2:latest" {
		t.Errorf("sent model = %q, want default", model)
	}
	if resp.Model != "llama3.2:latest" {
		t.Errorf("response model = %q, want fallback to requested model", resp.Model)
	}
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   domain.ErrorType
		wantStatus int
	}{
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"error":"llama runner process has terminated"}`,
			wantType:   domain.ErrorTypeBackend,
			wantStatus: 500,
		},
		{
			name:       "model not found",
			status:     http.StatusNotFound,
			body:       `{"error":"model 'llama9' not found"}`,
			wantType:   domain.ErrorTypeBackend,
			wantStatus: 404,
		},
		{
			name:     "malformed body",
			status:   http.StatusOK,
			body:     `<html>not json</html>`,
			wantType: domain.ErrorTypeProtocol,
		},
		{
			name:     "missing response field",
			status:   http.StatusOK,
			body:     `{"done":true}`,
			wantType: domain.ErrorTypeProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.Generate(context.Background(), &GenerateRequest{Model: "m", Prompt: "p"})
			if err == nil {
				t.Fatal("Generate() expected error")
			}

			derr, ok := domain.AsError(err)
			if !ok {
				t.Fatalf("Generate() error %v is not a *domain.Error", err)
			}
			if derr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", derr.Type, tt.wantType)
			}
			if derr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", derr.StatusCode, tt.wantStatus)
			}
			if derr.Endpoint != srv.URL {
				t.Errorf("Endpoint = %q, want %q", derr.Endpoint, srv.URL)
			}
		})
	}
}

func TestClient_Generate_ErrorBodyInMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'llama9' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Generate(context.Background(), &GenerateRequest{Model: "llama9"})
	derr, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("expected *domain.Error, got %v", err)
	}
	if derr.Message != "backend returned status 404: model 'llama9' not found" {
		t.Errorf("Message = %q", derr.Message)
	}
}

func TestClient_Down_ReturnsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Closed before the call.

	_, err := NewClient(srv.URL).Tags(context.Background())
	if err == nil {
		t.Fatal("Tags() expected error for closed server")
	}
	if _, ok := domain.AsError(err); ok {
		t.Errorf("transport failure should be left for the caller to classify, got %v", err)
	}
}

func TestClient_Tags_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Tags(context.Background())
	var derr *domain.Error
	if !errors.As(err, &derr) || derr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Tags() error = %v, want backend error 503", err)
	}
}

func TestRegisterFactory(t *testing.T) {
	backend.ClearFactories()
	defer backend.ClearFactories()

	RegisterFactory()
	RegisterFactory() // second call is a no-op

	if !backend.IsRegistered(Kind) {
		t.Fatal("ollama factory not registered")
	}
}
