package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("service is unhealthy")

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the record store and cache connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		report := a.Service().HealthCheck(ctx)
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if report["status"] == "unhealthy" {
			return errUnhealthy
		}
		return nil
	},
}
