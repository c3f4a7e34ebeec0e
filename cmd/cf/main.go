// Command cf runs the content factory: it discovers the bundled parser,
// provider, agent and publisher modules, serves them over HTTP and exposes
// them on the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/config"
	"github.com/steveyegge/contentfactory/internal/logging"
	_ "github.com/steveyegge/contentfactory/modules/all"
)

var (
	cfgPath     string
	modulesPath string
	logLevel    string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cf",
	Short: "Content Factory - pluggable content pipeline",
	Long: `Content Factory discovers parser, LLM provider, agent and social network
modules and runs them: parse feeds and pages, generate text, publish posts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if modulesPath != "" {
			loaded.ModulesPath = modulesPath
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CF_CONFIG"), "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&modulesPath, "modules", "", "module tree root (overrides modules_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
