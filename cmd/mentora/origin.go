package main

import (
	"fmt"

	"mentora/internal/logger"
	"mentora/internal/usecase"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	originCmd.AddCommand(originCheckCmd)
	rootCmd.AddCommand(originCmd)
}

var originCmd = &cobra.Command{
	Use:   "origin",
	Short: "Inspect the cross-origin policy",
}

var originCheckCmd = &cobra.Command{
	Use:   "check <origin>...",
	Short: "Evaluate origins against the configured policy",
	Long: `Evaluate each origin against ALLOWED_ORIGINS, the preview rule and the
loopback rule. Exits non-zero when any origin is denied.

Examples:
  mentora origin check https://mentora.app
  mentora origin check https://mentora-git-main-team.vercel.app http://localhost:3000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		authorizer := usecase.NewOriginAuthorizer(usecase.OriginPolicy{
			AllowedOrigins: cfg.AllowedOrigins,
			PreviewDomain:  cfg.PreviewDomain,
			ProjectToken:   cfg.ProjectToken,
		}, logger.Discard())

		allow := color.New(color.FgGreen, color.Bold).SprintFunc()
		deny := color.New(color.FgRed, color.Bold).SprintFunc()
		out := cmd.OutOrStdout()

		denied := 0
		for _, origin := range args {
			if authorizer.Allowed(origin) {
				fmt.Fprintf(out, "%s  %s\n", allow("ALLOW"), origin)
				continue
			}
			denied++
			fmt.Fprintf(out, "%s  %s\n", deny("DENY "), origin)
		}
		if denied > 0 {
			return fmt.Errorf("%d of %d origins denied", denied, len(args))
		}
		return nil
	},
}
