package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-chatbot/internal/completion"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one prompt, or prompt repeatedly without keeping history",
		Long: `Send one prompt and print the response.

With no arguments, prompts are read one per line until 'quit' or 'exit'.
Nothing is remembered between prompts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, opts.interactiveLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(args) > 0 {
				fmt.Fprintln(w, ask(cmd, client, strings.Join(args, " ")))
				return nil
			}
			return runAskLoop(cmd, cfg, client, w)
		},
	}
}

// ask returns the response text, or the error in printable form.
func ask(cmd *cobra.Command, client *completion.Client, prompt string) string {
	result := client.Generate(cmd.Context(), prompt)
	if !result.OK() {
		return "Error: " + result.Err.Message
	}
	return result.Text
}

func runAskLoop(cmd *cobra.Command, cfg *config.Config, client *completion.Client, w io.Writer) error {
	ctx := cmd.Context()
	name := displayName(cfg.Backend.Kind)

	fmt.Fprintf(w, "%s Chatbot - Simple Example\n", name)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Make sure %s is reachable at %s before starting!\n", name, client.Backend().Endpoint())
	if cfg.Backend.Kind == config.KindOllama {
		fmt.Fprintln(w, "Run: ollama serve")
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))

	lines := readLines(ctx, cmd.InOrStdin())
	for {
		fmt.Fprint(w, "\nYour prompt: ")

		var prompt string
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(w)
				return nil
			}
			prompt = line
		}

		if prompt == "" {
			continue
		}
		if isQuit(prompt) {
			return nil
		}

		fmt.Fprintf(w, "Sending prompt to %s (%s)...\n", name, cfg.Backend.Model)
		fmt.Fprintf(w, "\nResponse:\n%s\n", ask(cmd, client, prompt))
	}
}
