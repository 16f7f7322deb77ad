package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-chatbot/internal/completion"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

const diagPrompt = "What is 2+2?"

var errDiagFailed = errors.New("diagnostic failed")

func newDiagCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Check the backend connection, list models and run a test prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, opts.interactiveLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return runDiag(cmd, cfg, client)
		},
	}
}

func runDiag(cmd *cobra.Command, cfg *config.Config, client *completion.Client) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	name := displayName(cfg.Backend.Kind)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s Chatbot - Diagnostic Test\n", name)
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "\n1. Testing %s Connection...\n", name)
	fmt.Fprintln(w, thinRule)
	models, derr := client.Models(ctx)
	if derr != nil {
		fmt.Fprintln(w, connectionMessage(name, derr))
		fmt.Fprintf(w, "\n❌ %s is not reachable at %s!\n", name, client.Backend().Endpoint())
		printSetupHints(w, cfg)
		return errDiagFailed
	}
	fmt.Fprintf(w, "Connected! Available models: %d\n", len(models))

	fmt.Fprintln(w, "\n2. Available Models:")
	fmt.Fprintln(w, thinRule)
	if len(models) == 0 {
		fmt.Fprintln(w, "  No models found.")
		printSetupHints(w, cfg)
		return errDiagFailed
	}
	for _, m := range models {
		fmt.Fprintf(w, "  ✓ %s\n", m)
	}

	model := models[0]
	if slices.Contains(models, cfg.Backend.Model) {
		model = cfg.Backend.Model
	}

	fmt.Fprintln(w, "\n3. Testing Generation (Simple Prompt):")
	fmt.Fprintln(w, thinRule)
	fmt.Fprintf(w, "Sending test prompt: '%s' to %s\n", diagPrompt, model)
	fmt.Fprintln(w, "Waiting for response (this may take a minute)...")
	fmt.Fprintln(w)

	result := client.Generate(ctx, diagPrompt, completion.WithModel(model))
	if !result.OK() {
		fmt.Fprintf(w, "❌ Generation failed: %s\n", result.Err)
		return errDiagFailed
	}
	fmt.Fprintln(w, "✅ Generation successful!")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Prompt: %s\n", diagPrompt)
	fmt.Fprintf(w, "Response: %s\n", result.Text)

	printReady(w)
	return nil
}

func connectionMessage(name string, derr *domain.Error) string {
	switch derr.Type {
	case domain.ErrorTypeConnection:
		return fmt.Sprintf("Cannot connect - %s may not be running", name)
	case domain.ErrorTypeBackend:
		return fmt.Sprintf("%s returned status %d", name, derr.StatusCode)
	default:
		return "Error: " + derr.Error()
	}
}

func printReady(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "✅ Ready to use the chatbot!")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\nTo start the interactive chatbot, run:")
	fmt.Fprintln(w, "  chatbot chat")
	fmt.Fprintln(w, "\nOr send a single prompt:")
	fmt.Fprintln(w, `  chatbot ask "What is 2+2?"`)
}
