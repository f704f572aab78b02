package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEngineConfigDefaults(t *testing.T) {
	cfg := EngineConfig()

	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("Default similarity threshold should be 0.8, got %.2f", cfg.SimilarityThreshold)
	}
	if cfg.SimilarityDeadZone != 0.1 {
		t.Errorf("Default dead zone should be 0.1, got %.2f", cfg.SimilarityDeadZone)
	}
	if !cfg.RateTolerance.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("Default rate tolerance should be 0.01, got %s", cfg.RateTolerance)
	}
	if !cfg.HoursTolerance.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("Default hours tolerance should be 0.1, got %s", cfg.HoursTolerance)
	}
}

func TestEngineConfigFromEnv(t *testing.T) {
	t.Setenv("MATCH_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("MATCH_RATE_TOLERANCE", "0.05")

	cfg := EngineConfig()

	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("Expected threshold 0.9, got %.2f", cfg.SimilarityThreshold)
	}
	if !cfg.RateTolerance.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("Expected tolerance 0.05, got %s", cfg.RateTolerance)
	}
}

func TestEngineConfigIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("MATCH_SIMILARITY_THRESHOLD", "not-a-number")
	t.Setenv("MATCH_HOURS_TOLERANCE", "bogus")

	cfg := EngineConfig()

	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("Malformed value should fall back to 0.8, got %.2f", cfg.SimilarityThreshold)
	}
	if !cfg.HoursTolerance.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("Malformed value should fall back to 0.1, got %s", cfg.HoursTolerance)
	}
}

func TestGetenvFallback(t *testing.T) {
	if got := Getenv("SOME_UNSET_SETTING", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
	t.Setenv("SOME_SET_SETTING", "value")
	if got := Getenv("SOME_SET_SETTING", "fallback"); got != "value" {
		t.Errorf("Expected value, got %q", got)
	}
}
