package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health and metrics endpoints",
	Long: `Serve /healthz, /readyz, /health and /metrics on TARIFF_HTTP_ADDR until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))
		return a.Serve(ctx)
	},
}
