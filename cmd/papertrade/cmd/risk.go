package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/risk"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Manage risk inputs",
	Long: `Manage the volatility and correlation inputs read by the risk metrics.

Subcommands:
  set - Store the inputs for an instrument in the configured Redis source

Examples:
  papertrade risk set EURUSD --vol 8.5 --corr 0.7 -f papertrade.yaml`,
}

var riskSetCmd = &cobra.Command{
	Use:   "set <instrument>",
	Short: "Store volatility and correlation for an instrument",
	Args:  cobra.ExactArgs(1),
	RunE:  runRiskSet,
}

var (
	riskConfigPath  string
	riskVolatility  float64
	riskCorrelation float64
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskSetCmd)

	riskCmd.PersistentFlags().StringVarP(&riskConfigPath, "config", "f", "", "path to config file")
	riskSetCmd.Flags().Float64Var(&riskVolatility, "vol", risk.DefaultVolatility, "volatility, in percent")
	riskSetCmd.Flags().Float64Var(&riskCorrelation, "corr", risk.DefaultCorrelation, "correlation, between -1 and 1")
}

func runRiskSet(cmd *cobra.Command, args []string) error {
	if riskVolatility < 0 {
		return fmt.Errorf("--vol must not be negative")
	}
	if riskCorrelation < -1 || riskCorrelation > 1 {
		return fmt.Errorf("--corr must be between -1 and 1")
	}

	cfg, err := config.Load(riskConfigPath)
	if err != nil {
		return err
	}
	if cfg.Risk.Source != "redis" {
		return fmt.Errorf("risk.source is %q; inputs can only be stored in a redis source", cfg.Risk.Source)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	src, err := risk.NewRedisSource(ctx, cfg.Risk.Redis)
	if err != nil {
		return fmt.Errorf("risk source: %w", err)
	}
	defer src.Close()

	instrument := ledger.NormalizeInstrument(args[0])
	if err := src.Set(ctx, instrument, riskVolatility, riskCorrelation); err != nil {
		return err
	}

	fmt.Printf("✓ %s: volatility %.2f, correlation %.2f\n", instrument, riskVolatility, riskCorrelation)
	return nil
}
