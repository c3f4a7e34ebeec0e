package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/repl"
)

var (
	chatProvider string
	chatSystem   string
	chatHistory  string
	chatMaxTurns int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an LLM provider",
	Long: `Start an interactive chat with one of the registered LLM providers.
The conversation history is resent on every turn. Type /help inside the
chat for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		p, ok := a.manager.Providers.Get(chatProvider)
		if !ok {
			return fmt.Errorf("llm provider %q: %w", chatProvider, contracts.ErrNotFound)
		}

		r, err := repl.New(&repl.Config{
			Provider:     p,
			SystemPrompt: chatSystem,
			MaxTurns:     chatMaxTurns,
			HistoryFile:  chatHistory,
			Out:          cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		return r.Run(ctx)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatProvider, "provider", "anthropic", "LLM provider name")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "system prompt")
	chatCmd.Flags().StringVar(&chatHistory, "history-file", "", "readline history file")
	chatCmd.Flags().IntVar(&chatMaxTurns, "max-turns", repl.DefaultMaxTurns, "exchanges kept in the conversation")
	rootCmd.AddCommand(chatCmd)
}
