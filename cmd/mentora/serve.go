package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"mentora/internal/infra/db"
	httpinfra "mentora/internal/infra/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until SIGINT or SIGTERM, then drain in-flight requests
for up to SHUTDOWN_TIMEOUT_SECONDS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := db.NewStore(cfg, log)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}

		srv, err := httpinfra.NewServer(ctx, cfg, store, log)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("init server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Warn("close server resources", "err", err)
			}
		}()

		if cfg.IsProduction() {
			log.Info("legacy identity header disabled")
		} else {
			log.Warn("legacy identity header enabled; never run this configuration in production", "header", "X-User-Id")
		}
		return srv.Run(ctx)
	},
}
