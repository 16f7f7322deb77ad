// Package cli implements the chatbot command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	backend    string
	model      string
	url        string
	logLevel   string
}

// Execute runs the command tree with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Chat with a local Ollama or cloud Groq model",
		Long: `chatbot sends prompts to an inference backend and prints the replies.

The backend is a local Ollama daemon by default. Select Groq with
--backend groq and provide GROQ_API_KEY.

Configuration is read from config.yaml (or --config), then CHATBOT_*
environment variables, then flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "backend kind: ollama or groq")
	cmd.PersistentFlags().StringVar(&opts.model, "model", "", "model identifier")
	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "backend base URL")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newDiagCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatbot version %s\n", version)
		},
	}
}
