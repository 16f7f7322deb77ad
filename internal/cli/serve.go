package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/server"
	"github.com/tjfontaine/polyglot-chatbot/internal/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat page and its JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := map[string]any{}
			if cmd.Flags().Changed("host") {
				extra["server.host"] = host
			}
			if cmd.Flags().Changed("port") {
				extra["server.port"] = port
			}

			cfg, err := opts.loadConfig(extra)
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default localhost)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default 5000, or $PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := serviceLogger(cfg.Log, cmd.OutOrStdout())
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry, version, cmd.ErrOrStderr(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	session, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer session.Transcript().Close()

	displayModel := cfg.Backend.Model
	if cfg.Backend.Kind == config.KindGroq {
		displayModel = "Groq " + cfg.Backend.Model
	}
	srv := server.New(cfg.Server, session, logger, server.WithDisplayModel(displayModel))

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	name := displayName(cfg.Backend.Kind)
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s Chatbot Server Starting...\n", name)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\nOpen your browser at: http://%s\n", ln.Addr())
	if cfg.Backend.Kind == config.KindGroq {
		fmt.Fprintf(w, "API Key configured: %s\n", yesNo(cfg.Backend.HasAPIKey()))
	} else {
		fmt.Fprintf(w, "\nMake sure Ollama is running at %s\n", cfg.Backend.BaseURL)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop the server")
	fmt.Fprintln(w, rule)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errc; err != nil {
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
