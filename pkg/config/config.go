package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue endpoints
	PolymktAPIURL     string
	PolymktAPIKey     string
	PolymktSecret     string
	PolymktPassphrase string
	PolymktWSURL      string
	PolymktCLOBURL    string
	PolymktPrivateKey string
	PolymktProxyAddr  string
	PolymktSigType    int
	PolymktChainID    int64
	KalshiAPIURL      string
	KalshiAPIKey      string

	// Snapshot polling
	EventPollInterval time.Duration
	QuotePollInterval time.Duration
	EventLimit        int

	// Event matching
	MatchThreshold    float64
	ExpiryTolerance   time.Duration
	MatchInterval     time.Duration
	CategoryAllowList []string
	MaxHoursToExpiry  time.Duration
	MinHoursToExpiry  time.Duration
	MinQuoteSize      int64

	// Arbitrage detection
	MinMargin       types.Micros
	EstimatedFees   types.Micros
	MaxPositionSize int64
	StaleQuoteAfter time.Duration

	// Execution
	ExecutionMode     string // "paper" or "live"
	SlippageTolerance types.Micros
	RetryAttempts     int
	RetryBackoff      time.Duration
	RetryMaxBackoff   time.Duration

	// Risk breaker
	BreakerEnabled         bool
	BreakerMaxExposure     types.Micros
	BreakerHysteresisRatio float64

	// Settlement
	SettlementPollInterval time.Duration
	ResolutionCacheTTL     time.Duration
	ResolvedCacheTTL       time.Duration

	// WebSocket feed (decentralized venue fast path)
	WSFeedEnabled           bool
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Venue defaults
		PolymktAPIURL:     getEnvOrDefault("POLYMKT_API_URL", "https://gamma-api.polymarket.com"),
		PolymktAPIKey:     os.Getenv("POLYMKT_API_KEY"),
		PolymktSecret:     os.Getenv("POLYMKT_SECRET"),
		PolymktPassphrase: os.Getenv("POLYMKT_PASSPHRASE"),
		PolymktWSURL:      getEnvOrDefault("POLYMKT_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymktCLOBURL:    getEnvOrDefault("POLYMKT_CLOB_URL", "https://clob.polymarket.com"),
		PolymktPrivateKey: os.Getenv("POLYMKT_PRIVATE_KEY"),
		PolymktProxyAddr:  os.Getenv("POLYMKT_PROXY_ADDRESS"),
		PolymktSigType:    getIntOrDefault("POLYMKT_SIGNATURE_TYPE", 0),
		PolymktChainID:    getInt64OrDefault("POLYMKT_CHAIN_ID", 137),
		KalshiAPIURL:      getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiAPIKey:      os.Getenv("KALSHI_API_KEY"),

		// Snapshot polling defaults
		EventPollInterval: getDurationOrDefault("EVENT_POLL_INTERVAL", 30*time.Second),
		QuotePollInterval: getDurationOrDefault("QUOTE_POLL_INTERVAL", 1*time.Second),
		EventLimit:        getIntOrDefault("EVENT_LIMIT", 200),

		// Matching defaults
		MatchThreshold:   getFloat64OrDefault("MATCH_THRESHOLD", 0.8),
		ExpiryTolerance:  getDurationOrDefault("EXPIRY_TOLERANCE", 24*time.Hour),
		MatchInterval:    getDurationOrDefault("MATCH_INTERVAL", 60*time.Second),
		MaxHoursToExpiry: getDurationOrDefault("MAX_TIME_TO_EXPIRY", 7*24*time.Hour),
		MinHoursToExpiry: getDurationOrDefault("MIN_TIME_TO_EXPIRY", 5*time.Minute),
		MinQuoteSize:     getInt64OrDefault("MIN_QUOTE_SIZE", 10),

		// Detection defaults
		MinMargin:       getMicrosOrDefault("MIN_MARGIN", 0.01),
		EstimatedFees:   getMicrosOrDefault("ESTIMATED_FEES", 0.02),
		MaxPositionSize: getInt64OrDefault("MAX_POSITION_SIZE", 1000),
		StaleQuoteAfter: getDurationOrDefault("STALE_QUOTE_AFTER", 2*time.Second),

		// Execution defaults
		ExecutionMode:     getEnvOrDefault("EXECUTION_MODE", "paper"),
		SlippageTolerance: getMicrosOrDefault("SLIPPAGE_TOLERANCE", 0.01),
		RetryAttempts:     getIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryBackoff:      getDurationOrDefault("RETRY_BACKOFF", 250*time.Millisecond),
		RetryMaxBackoff:   getDurationOrDefault("RETRY_MAX_BACKOFF", 2*time.Second),

		// Risk breaker defaults
		BreakerEnabled:         getBoolOrDefault("BREAKER_ENABLED", true),
		BreakerMaxExposure:     getMicrosOrDefault("BREAKER_MAX_EXPOSURE", 500.0),
		BreakerHysteresisRatio: getFloat64OrDefault("BREAKER_HYSTERESIS_RATIO", 0.5),

		// Settlement defaults
		SettlementPollInterval: getDurationOrDefault("SETTLEMENT_POLL_INTERVAL", 60*time.Second),
		ResolutionCacheTTL:     getDurationOrDefault("RESOLUTION_CACHE_TTL", 30*time.Second),
		ResolvedCacheTTL:       getDurationOrDefault("RESOLVED_CACHE_TTL", 24*time.Hour),

		// WebSocket defaults
		WSFeedEnabled:           getBoolOrDefault("WS_FEED_ENABLED", false),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prediction_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if raw := os.Getenv("CATEGORY_ALLOW_LIST"); raw != "" {
		cfg.CategoryAllowList = splitCSV(raw)
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Errors here are
// fatal at startup; nothing downstream revalidates thresholds.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return &types.ConfigurationError{Field: "HTTP_PORT", Reason: "cannot be empty"}
	}

	if c.MatchThreshold <= 0 || c.MatchThreshold > 1.0 {
		return &types.ConfigurationError{
			Field:  "MATCH_THRESHOLD",
			Reason: fmt.Sprintf("must be in (0, 1], got %f", c.MatchThreshold),
		}
	}

	if c.ExpiryTolerance <= 0 {
		return &types.ConfigurationError{Field: "EXPIRY_TOLERANCE", Reason: "must be positive"}
	}

	if c.MinMargin <= 0 || c.MinMargin >= types.Dollar {
		return &types.ConfigurationError{
			Field:  "MIN_MARGIN",
			Reason: fmt.Sprintf("must be in (0, 1.0) dollars, got %s", c.MinMargin),
		}
	}

	if c.EstimatedFees < 0 || c.EstimatedFees >= types.Dollar {
		return &types.ConfigurationError{
			Field:  "ESTIMATED_FEES",
			Reason: fmt.Sprintf("must be in [0, 1.0) dollars, got %s", c.EstimatedFees),
		}
	}

	if c.MaxPositionSize <= 0 {
		return &types.ConfigurationError{Field: "MAX_POSITION_SIZE", Reason: "must be positive"}
	}

	if c.StaleQuoteAfter <= 0 {
		return &types.ConfigurationError{Field: "STALE_QUOTE_AFTER", Reason: "must be positive"}
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return &types.ConfigurationError{
			Field:  "EXECUTION_MODE",
			Reason: fmt.Sprintf("must be 'paper' or 'live', got %q", c.ExecutionMode),
		}
	}

	if c.ExecutionMode == "live" {
		if c.PolymktPrivateKey == "" {
			return &types.ConfigurationError{Field: "POLYMKT_PRIVATE_KEY", Reason: "required in live mode"}
		}
		if c.KalshiAPIKey == "" {
			return &types.ConfigurationError{Field: "KALSHI_API_KEY", Reason: "required in live mode"}
		}
	}

	if c.RetryAttempts < 1 {
		return &types.ConfigurationError{Field: "RETRY_ATTEMPTS", Reason: "must be at least 1"}
	}

	if c.BreakerEnabled {
		if c.BreakerMaxExposure <= 0 {
			return &types.ConfigurationError{Field: "BREAKER_MAX_EXPOSURE", Reason: "must be positive"}
		}
		if c.BreakerHysteresisRatio <= 0 || c.BreakerHysteresisRatio >= 1.0 {
			return &types.ConfigurationError{
				Field:  "BREAKER_HYSTERESIS_RATIO",
				Reason: fmt.Sprintf("must be in (0, 1), got %f", c.BreakerHysteresisRatio),
			}
		}
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return &types.ConfigurationError{
			Field:  "STORAGE_MODE",
			Reason: fmt.Sprintf("must be 'postgres' or 'console', got %q", c.StorageMode),
		}
	}

	return nil
}

func splitCSV(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

// getMicrosOrDefault parses a dollar amount env var into micro-units.
func getMicrosOrDefault(key string, defaultDollars float64) types.Micros {
	value := os.Getenv(key)
	if value == "" {
		return types.MicrosFromFloat(defaultDollars)
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return types.MicrosFromFloat(defaultDollars)
	}

	return types.MicrosFromFloat(floatVal)
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
