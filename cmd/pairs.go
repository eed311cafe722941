package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/venue/kalshi"
	"github.com/crossvenue/prediction-arb/internal/venue/polymkt"
	"github.com/crossvenue/prediction-arb/pkg/config"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Run one matching pass and print candidate pairs",
	Long: `Fetches currently listed events from both venues, runs the event
matcher once, and prints the candidate pairs with their confidence
scores. Useful for tuning MATCH_THRESHOLD without starting the engine.`,
	RunE: runPairs,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(pairsCmd)
	pairsCmd.Flags().Bool("json", false, "Emit candidates as JSON")
}

func runPairs(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	clientA := polymkt.NewClient(&polymkt.ClientConfig{BaseURL: cfg.PolymktAPIURL, Logger: logger})
	clientB := kalshi.New(&kalshi.Config{BaseURL: cfg.KalshiAPIURL, APIKey: cfg.KalshiAPIKey, Logger: logger})

	eventsA, err := clientA.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events A: %w", err)
	}
	eventsB, err := clientB.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events B: %w", err)
	}

	m := matcher.New(matcher.Config{
		Threshold:       cfg.MatchThreshold,
		ExpiryTolerance: cfg.ExpiryTolerance,
		Logger:          logger,
	})
	candidates := m.Match(eventsA, eventsB)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}

	fmt.Printf("%-40s %-40s %10s %12s\n", "EVENT A", "EVENT B", "SCORE", "EXPIRY DELTA")
	for _, c := range candidates {
		fmt.Printf("%-40.40s %-40.40s %10.3f %12s\n",
			c.EventA.Title, c.EventB.Title, c.Confidence, c.ExpiryDelta)
	}
	fmt.Printf("\n%d candidates above threshold %.2f (events: %d vs %d)\n",
		len(candidates), cfg.MatchThreshold, len(eventsA), len(eventsB))

	return nil
}
