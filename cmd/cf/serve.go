package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the module API over HTTP",
	Long: `Discover and initialize modules, then serve the REST API until SIGINT or
SIGTERM. In-flight requests get the configured shutdown timeout to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(context.Background()); err != nil {
				logger.Warn("cleanup failed", "err", err)
			}
		}()

		serverCfg := cfg.Server
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		}
		opts := []server.Option{server.WithLogger(logger)}
		if a.store != nil {
			opts = append(opts, server.WithCachePruning(a.store, cfg.Cache))
		}
		return server.New(a.svc, serverCfg, opts...).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
