package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "prediction-arb",
	Short: "Cross-venue prediction market arbitrage engine",
	Long: `Cross-venue arbitrage engine for binary prediction markets.

The engine polls two venues for listed events, fuzzy-matches equivalent
events into pairs, and watches live quotes for price gaps. When buying
YES on one venue and NO on the other costs less than the guaranteed
$1 payout (after fees and margin), it executes both legs, tracks the
position, and reconciles the payout once both venues resolve.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
