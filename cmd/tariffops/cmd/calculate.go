package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// calculateCmd represents the calculate command
var calculateCmd = &cobra.Command{
	Use:   "calculate [item] [territory]",
	Short: "Calculate the combined tariff of an item in a territory",
	Long: `Calculate the combined tariff of an item in a territory and print it as JSON.

The item defaults to ITEM-001 and the territory to CHN.

Examples:
  tariffops calculate ITEM-001 CHN
  tariffops calculate ITEM-042 usa
  tariffops calculate --refresh ITEM-001 CHN`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCalculate,
}

var refresh bool

func init() {
	calculateCmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached result before calculating")
}

func runCalculate(cmd *cobra.Command, args []string) error {
	item, territory := "ITEM-001", "CHN"
	if len(args) > 0 {
		item = args[0]
	}
	if len(args) > 1 {
		territory = args[1]
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if refresh {
		if err := a.Service().InvalidateTariff(ctx, item, territory); err != nil {
			return err
		}
	}

	result, err := a.Service().CalculateTotalTariff(ctx, item, territory)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
