// Package server exposes a completion Session over a small JSON API and
// serves the browser chat page that consumes it.
package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tjfontaine/polyglot-chatbot/internal/completion"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/telemetry"
)

type Server struct {
	Router  *chi.Mux
	Addr    string
	session *completion.Session
	index   *template.Template
	model   string
	logger  *slog.Logger

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDisplayModel sets the model name shown on the chat page.
func WithDisplayModel(model string) Option {
	return func(s *Server) {
		s.model = model
	}
}

// New builds the router for session. cfg supplies the listen address.
func New(cfg config.ServerConfig, session *completion.Session, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		Addr:    cfg.Addr(),
		session: session,
		index:   indexTemplate,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)
	r.Use(GenerationDeadline(session.Client().Timeout()))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return telemetry.Handler(next, "polyglot-chatbot")
	})

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/models", s.handleModels)
		r.Get("/health", s.handleHealth)
		r.Get("/history", s.handleHistory)
		r.Post("/clear", s.handleClear)
	})

	s.Router = r
	s.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start listens on s.Addr and serves until Shutdown is called. It returns
// nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
