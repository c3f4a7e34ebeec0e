// Package repl is the interactive chat shell behind "cf chat".
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// REPL represents the interactive shell
type REPL struct {
	provider     contracts.Provider
	conversation *Conversation
	rl           *readline.Instance
	ctx          context.Context
	out          io.Writer
	historyFile  string
	commands     map[string]CommandHandler
}

// CommandHandler handles a specific slash command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Provider     contracts.Provider
	SystemPrompt string
	MaxTurns     int
	HistoryFile  string    // readline history, empty keeps it in memory
	Out          io.Writer // defaults to stdout
	Options      []contracts.GenerateOption
}

// errExit ends the loop.
var errExit = errors.New("exit")

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		provider:     cfg.Provider,
		conversation: NewConversation(cfg.Provider, cfg.SystemPrompt, cfg.MaxTurns, cfg.Options...),
		out:          out,
		historyFile:  cfg.HistoryFile,
		ctx:          context.Background(),
		commands:     make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan(r.provider.ProviderName() + "> "),
		HistoryFile:       r.historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            r.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// processInput dispatches slash commands and sends everything else to the
// provider.
func (r *REPL) processInput(line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.processMessage(line)
	}

	parts := strings.Fields(line)
	command := strings.TrimPrefix(parts[0], "/")
	if handler, ok := r.commands[command]; ok {
		return handler(parts[1:])
	}
	return fmt.Errorf("unknown command /%s (try /help)", command)
}

func (r *REPL) processMessage(text string) error {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(r.out, "%s\n", gray("Thinking..."))

	reply, err := r.conversation.SendMessage(r.ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, reply)
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["reset"] = r.cmdReset
	r.commands["history"] = r.cmdHistory
	r.commands["system"] = r.cmdSystem
	r.commands["models"] = r.cmdModels
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("Content Factory chat ("+r.provider.ProviderName()+")"))
	fmt.Fprintln(r.out, "Type a message to talk to the model, '/help' for commands, '/exit' to quit")
	fmt.Fprintln(r.out)
}

func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"/help, /?", "Show this help message"},
		{"/history", "Show the conversation so far"},
		{"/reset", "Forget the conversation"},
		{"/system [text]", "Show or replace the system prompt"},
		{"/models", "List the provider's models"},
		{"/exit, /quit", "Exit the chat"},
	}
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-16s  %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	return errExit
}

func (r *REPL) cmdReset(args []string) error {
	r.conversation.ClearHistory()
	fmt.Fprintln(r.out, "Conversation cleared.")
	return nil
}

func (r *REPL) cmdHistory(args []string) error {
	history := r.conversation.History()
	if len(history) == 0 {
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Fprintf(r.out, "%s\n", gray("No messages yet"))
		return nil
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, m := range history {
		fmt.Fprintf(r.out, "%s %s\n", yellow(m.Role+":"), m.Content)
	}
	return nil
}

func (r *REPL) cmdSystem(args []string) error {
	if len(args) == 0 {
		prompt := r.conversation.SystemPrompt()
		if prompt == "" {
			prompt = "(none)"
		}
		fmt.Fprintf(r.out, "System prompt: %s\n", prompt)
		return nil
	}
	r.conversation.SetSystemPrompt(strings.Join(args, " "))
	fmt.Fprintln(r.out, "System prompt updated.")
	return nil
}

func (r *REPL) cmdModels(args []string) error {
	lister, ok := r.provider.(contracts.ModelLister)
	if !ok {
		return fmt.Errorf("%s cannot list models: %w", r.provider.ProviderName(), contracts.ErrUnsupported)
	}
	models, err := lister.AvailableModels(r.ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Fprintf(r.out, "  %s\n", m)
	}
	return nil
}
