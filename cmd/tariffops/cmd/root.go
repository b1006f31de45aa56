// Package cmd provides the CLI commands for tariffops.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/tariffops/cache"
	"github.com/jonwraymond/tariffops/config"
	"github.com/jonwraymond/tariffops/internal/app"
)

var (
	envFile    string
	memoryMode bool
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tariffops",
	Short: "Calculate combined import tariffs for items and their components",
	Long: `tariffops resolves an item's bill of materials and the tariff rates of the
item and each component, then combines them under the item's combination
policy. Lookups and results are cached in Redis.

Examples:
  tariffops calculate ITEM-001 CHN
  tariffops --memory calculate ITEM-001 CHN
  tariffops health
  tariffops serve`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")
	rootCmd.PersistentFlags().BoolVar(&memoryMode, "memory", false, "use built-in demo records and an in-process cache")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(calculateCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
}

// bootstrap loads configuration and builds the application.
func bootstrap(ctx context.Context) (*app.App, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if verbose {
		cfg.Observe.Logging.Level = "debug"
	}

	var opts []app.Option
	if memoryMode {
		opts = append(opts,
			app.WithRecords(demoRecords()),
			app.WithCache(cache.NewMemoryCache()),
		)
	}

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return a, nil
}
