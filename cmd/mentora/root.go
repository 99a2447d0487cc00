package main

import (
	"log/slog"

	"mentora/internal/config"
	"mentora/internal/logger"

	"github.com/spf13/cobra"
)

var (
	Version = "0.1.0"

	envFile string

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mentora",
	Short: "Calendar and task proxy for the Mentora study planner",
	Long: `mentora serves the Mentora API: it authenticates requests, enforces the
cross-origin policy and proxies Google Calendar, Google Tasks and Groq
summaries for connected users.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}
		loaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		log = logger.Init(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the process environment")
}
