package cmd

import (
	"fmt"

	"github.com/crossvenue/prediction-arb/internal/app"
	"github.com/crossvenue/prediction-arb/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the engine end to end:
1. Poll both venues for events and quotes
2. Match equivalent events into tradeable pairs
3. Detect spreads where YES ask + NO ask + fees < $1
4. Execute both legs (paper mode by default) and track positions
5. Reconcile settlements once both venues resolve`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	engine, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := engine.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
