package engine

import "github.com/shopspring/decimal"

// Config tunes the matching engine. All values are plain data so a run is a
// pure function of (record, entries, config).
type Config struct {
	// SimilarityThreshold is the minimum timekeeper-name similarity, in [0,1],
	// for a ledger entry to count as a match.
	SimilarityThreshold float64

	// SimilarityDeadZone is the band directly below the threshold in which a
	// best candidate is reported as ambiguous instead of missing.
	SimilarityDeadZone float64

	// RateTolerance is the maximum absolute rate difference that is still a match.
	RateTolerance decimal.Decimal

	// HoursTolerance absorbs rounding differences in billed hours.
	HoursTolerance decimal.Decimal

	// AmountTolerance applies to expense matching and the invoice arithmetic check.
	AmountTolerance decimal.Decimal

	// ConfidenceThreshold is the extraction confidence floor. It is applied
	// upstream during human review; it lives here so the contract is shared.
	ConfidenceThreshold float64

	// RetainerBalance is the firm's available retainer for this client,
	// supplied by the retainer-balance source.
	RetainerBalance decimal.Decimal

	// ProgressEvery controls how often the progress callback fires, in line items.
	ProgressEvery int
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.8,
		SimilarityDeadZone:  0.1,
		RateTolerance:       decimal.NewFromFloat(0.01),
		HoursTolerance:      decimal.NewFromFloat(0.1),
		AmountTolerance:     decimal.NewFromFloat(0.01),
		ConfidenceThreshold: 0.7,
		RetainerBalance:     decimal.Zero,
		ProgressEvery:       100,
	}
}
