package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-chatbot/internal/completion"
	"github.com/tjfontaine/polyglot-chatbot/internal/config"
	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

Commands:
  quit, exit  leave the session
  clear       clear the conversation history
  history     show the conversation history

History is kept for display only; every prompt is sent on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			logger := opts.interactiveLogger(cfg, cmd.ErrOrStderr())

			session, err := newSession(cfg, logger)
			if err != nil {
				return err
			}
			defer session.Transcript().Close()

			return runChat(cmd, cfg, session)
		},
	}
}

func runChat(cmd *cobra.Command, cfg *config.Config, session *completion.Session) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	client := session.Client()
	name := displayName(cfg.Backend.Kind)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Welcome to %s Chatbot!\n", name)
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "\nChecking connection to %s at %s...\n", name, client.Backend().Endpoint())
	if !client.CheckAvailability(ctx) {
		fmt.Fprintf(w, "❌ Error: Cannot connect to %s!\n", name)
		printSetupHints(w, cfg)
		return nil
	}
	fmt.Fprintf(w, "✅ Connected to %s!\n", name)

	fmt.Fprintf(w, "\nUsing model: %s\n", cfg.Backend.Model)
	if models := client.ListModels(ctx); len(models) > 0 {
		fmt.Fprintf(w, "Available models: %s\n", strings.Join(models, ", "))
	}

	fmt.Fprintln(w, "\nType 'quit' or 'exit' to stop the chatbot")
	fmt.Fprintln(w, "Type 'clear' to clear conversation history")
	fmt.Fprintln(w, "Type 'history' to see conversation history")
	fmt.Fprintln(w, thinRule)

	lines := readLines(ctx, cmd.InOrStdin())
	for {
		fmt.Fprint(w, "\nYou: ")

		var input string
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\n\nGoodbye!")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(w, "\nGoodbye!")
				return nil
			}
			input = line
		}

		switch {
		case input == "":
			continue
		case isQuit(input):
			fmt.Fprintln(w, "Goodbye!")
			return nil
		case strings.EqualFold(input, "clear"):
			if err := session.Transcript().Clear(ctx); err != nil {
				fmt.Fprintf(w, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(w, "Conversation history cleared.")
			continue
		case strings.EqualFold(input, "history"):
			printHistory(w, session.Transcript().List(ctx))
			continue
		}

		fmt.Fprint(w, "\nBot: Thinking...")
		result := session.Chat(ctx, input)
		if ctx.Err() != nil {
			fmt.Fprintln(w, "\n\nGoodbye!")
			return nil
		}
		if result.OK() {
			fmt.Fprintf(w, "\rBot: %s\n", result.Text)
			continue
		}
		fmt.Fprintln(w, "\rBot: Sorry, I couldn't generate a response. Please try again.")
		fmt.Fprintf(w, "Error: %s\n", result.Err)
	}
}

func printHistory(w io.Writer, history []domain.Exchange) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No conversation history yet.")
		return
	}

	fmt.Fprintln(w, "\n--- Conversation History ---")
	for i, ex := range history {
		fmt.Fprintf(w, "\n[Exchange %d]\n", i+1)
		fmt.Fprintf(w, "You: %s\n", ex.User)
		fmt.Fprintf(w, "Bot: %s\n", ex.Bot)

		estimated := ""
		if ex.Usage.Estimated {
			estimated = ", estimated"
		}
		fmt.Fprintf(w, "(%s, %d tokens%s)\n", ex.Model, ex.Usage.TotalTokens(), estimated)
	}
}
