package config

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ryanpate/invoicerecon/internal/engine"
)

func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ServerAddr() string {
	return ":" + Getenv("PORT", "8080")
}

func CORSOrigins() []string {
	return []string{Getenv("CORS_ORIGIN", "http://localhost:3000")}
}

// EngineConfig builds the matching engine defaults from the environment.
// The retainer balance is filled in per run by the reconciliation service.
func EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.SimilarityThreshold = envFloat("MATCH_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.SimilarityDeadZone = envFloat("MATCH_SIMILARITY_DEAD_ZONE", cfg.SimilarityDeadZone)
	cfg.ConfidenceThreshold = envFloat("EXTRACTION_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	cfg.RateTolerance = envDecimal("MATCH_RATE_TOLERANCE", cfg.RateTolerance)
	cfg.HoursTolerance = envDecimal("MATCH_HOURS_TOLERANCE", cfg.HoursTolerance)
	cfg.AmountTolerance = envDecimal("MATCH_AMOUNT_TOLERANCE", cfg.AmountTolerance)
	return cfg
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback
	}
	return d
}
