package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A virtual trading ledger with live analytics",
	Long: `Papertrade keeps a virtual trading account and values it against a
simulated price feed.

It provides tools for:
  - Opening and closing virtual long/short positions
  - Live account, performance and portfolio risk analytics
  - A REST and websocket API for dashboards
  - Journaling closed positions and equity snapshots
  - Risk-based position sizing`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Init(os.Stderr, logFormat, logLevel)
		return err
	},
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
}
