package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ProgressFunc receives periodic progress during a run. It observes the run
// but never influences the output.
type ProgressFunc func(processed, total int)

// ledgerState tracks one candidate entry over the course of a run.
type ledgerState struct {
	entry         LedgerEntry
	consumed      bool
	invoicedHours decimal.Decimal
}

// Reconcile compares one extraction record against the ledger slice for the
// same firm, matter and period. It is a pure function of its inputs: the same
// record and the same snapshot always produce the identical discrepancy
// sequence, so retries are safe.
func Reconcile(rec ExtractionRecord, entries []LedgerEntry, cfg Config) (Result, error) {
	return ReconcileWithProgress(rec, entries, cfg, nil)
}

func ReconcileWithProgress(rec ExtractionRecord, entries []LedgerEntry, cfg Config, progress ProgressFunc) (Result, error) {
	if err := Validate(rec); err != nil {
		return Result{}, err
	}

	// Stable candidate order: date, then created-at, then external id. All
	// tie-breaks below fall through to this order.
	states := make([]*ledgerState, 0, len(entries))
	for _, e := range entries {
		states = append(states, &ledgerState{entry: e})
	}
	sort.SliceStable(states, func(i, j int) bool {
		a, b := states[i].entry, states[j].entry
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ExternalID < b.ExternalID
	})

	var discs []Discrepancy

	// Invoice arithmetic: line amounts plus taxes minus retainer should land
	// on amount due. A violation is a finding, not a parse error.
	lineSum := decimal.Zero
	for _, item := range rec.LineItems {
		lineSum = lineSum.Add(item.Amount)
	}
	expectedDue := lineSum.Add(rec.Taxes).Sub(rec.RetainerApplied)
	if expectedDue.Sub(rec.AmountDue).Abs().GreaterThan(cfg.AmountTolerance) {
		discs = append(discs, Discrepancy{
			Kind:     TotalMismatch,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("Invoice arithmetic mismatch: line items plus taxes minus retainer is $%s, amount due shows $%s",
				expectedDue.StringFixed(2), rec.AmountDue.StringFixed(2)),
			Expected:   expectedDue,
			Actual:     rec.AmountDue,
			Difference: rec.AmountDue.Sub(expectedDue),
			Status:     StatusPending,
		})
	}

	matched := 0
	total := len(rec.LineItems)
	every := cfg.ProgressEvery
	if every <= 0 {
		every = 100
	}

	for idx := range rec.LineItems {
		line := rec.LineItems[idx]
		switch line.Kind {
		case LineItemTime:
			d, ok := matchTimeLine(idx, line, states, cfg)
			if ok {
				matched++
			}
			discs = append(discs, d...)
		case LineItemExpense:
			d, ok := matchExpenseLine(idx, line, states, cfg)
			if ok {
				matched++
			}
			discs = append(discs, d...)
		case LineItemFlatFee:
			// No ledger counterpart; covered by the arithmetic check only.
		}

		if progress != nil && (idx+1)%every == 0 {
			progress(idx+1, total)
		}
	}

	if rec.RetainerApplied.GreaterThan(cfg.RetainerBalance) {
		discs = append(discs, Discrepancy{
			Kind:     RetainerIssue,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("Retainer applied $%s exceeds available balance $%s",
				rec.RetainerApplied.StringFixed(2), cfg.RetainerBalance.StringFixed(2)),
			Expected:   cfg.RetainerBalance,
			Actual:     rec.RetainerApplied,
			Difference: rec.RetainerApplied.Sub(cfg.RetainerBalance),
			Status:     StatusPending,
		})
	}

	// Unbilled sweep: billable ledger time the invoice never claimed. This is
	// the inverse failure mode of overbilling and is reported, never dropped.
	discs = append(discs, sweepUnbilled(states, cfg)...)

	status := RunNeedsReview
	if len(discs) == 0 {
		status = RunComplete
	}

	if progress != nil {
		progress(total, total)
	}

	return Result{
		Discrepancies: discs,
		Status:        status,
		MatchedLines:  matched,
		TotalLines:    total,
	}, nil
}

// matchTimeLine matches one time line item against the unconsumed ledger.
// Returns the discrepancies for the line and whether a ledger entry matched.
func matchTimeLine(idx int, line LineItem, states []*ledgerState, cfg Config) ([]Discrepancy, bool) {
	lineIdx := idx

	var candidates []*ledgerState
	bestSim := 0.0
	var bestNear *ledgerState

	for _, st := range states {
		if st.consumed || st.entry.Kind != LedgerTime {
			continue
		}
		if !sameDay(st.entry.Date, line.Date) {
			continue
		}
		sim := nameSimilarity(line.Timekeeper, st.entry.Timekeeper)
		if sim >= cfg.SimilarityThreshold {
			candidates = append(candidates, st)
		} else if sim > bestSim {
			bestSim = sim
			bestNear = st
		}
	}

	if len(candidates) == 0 {
		// Best near-miss inside the dead zone: neither a match nor missing,
		// flagged for human review instead of auto-resolving either way.
		if bestNear != nil && bestSim >= cfg.SimilarityThreshold-cfg.SimilarityDeadZone {
			bestNear.consumed = true
			bestNear.invoicedHours = bestNear.entry.Hours
			ref := bestNear.entry.ExternalID
			return []Discrepancy{{
				Kind:      AmbiguousMatch,
				Severity:  SeverityLow,
				LineIndex: &lineIdx,
				LedgerRef: &ref,
				Description: fmt.Sprintf("Ambiguous timekeeper match: invoice %q vs ledger %q (similarity %.2f)",
					line.Timekeeper, bestNear.entry.Timekeeper, bestSim),
				Expected:   bestNear.entry.Amount,
				Actual:     line.Amount,
				Difference: line.Amount.Sub(bestNear.entry.Amount),
				Status:     StatusPending,
			}}, false
		}

		return []Discrepancy{{
			Kind:        MissingTime,
			Severity:    SeverityHigh,
			LineIndex:   &lineIdx,
			Description: fmt.Sprintf("No matching time entry found for: %s", truncate(line.Description, 100)),
			Expected:    line.Amount,
			Actual:      decimal.Zero,
			Difference:  line.Amount.Neg(),
			Status:      StatusPending,
		}}, false
	}

	// Tie-break: closest hours first; states are already in date/created-at/
	// external-id order so the earliest record wins remaining ties.
	chosen := candidates[0]
	chosenDiff := chosen.entry.Hours.Sub(line.Hours).Abs()
	for _, c := range candidates[1:] {
		diff := c.entry.Hours.Sub(line.Hours).Abs()
		if diff.LessThan(chosenDiff) {
			chosen = c
			chosenDiff = diff
		}
	}

	chosen.consumed = true
	chosen.invoicedHours = line.Hours
	ref := chosen.entry.ExternalID

	var discs []Discrepancy

	rateDiff := line.Rate.Sub(chosen.entry.Rate)
	if rateDiff.Abs().GreaterThan(cfg.RateTolerance) {
		discs = append(discs, Discrepancy{
			Kind:      RateMismatch,
			Severity:  SeverityMedium,
			LineIndex: &lineIdx,
			LedgerRef: &ref,
			Description: fmt.Sprintf("Rate mismatch: invoice $%s/hr vs ledger $%s/hr for %s",
				line.Rate.StringFixed(2), chosen.entry.Rate.StringFixed(2), line.Timekeeper),
			Expected:   chosen.entry.Rate,
			Actual:     line.Rate,
			Difference: rateDiff,
			Status:     StatusPending,
		})
	}

	if line.Hours.GreaterThan(chosen.entry.Hours.Add(cfg.HoursTolerance)) {
		discs = append(discs, Discrepancy{
			Kind:      Overbilling,
			Severity:  SeverityHigh,
			LineIndex: &lineIdx,
			LedgerRef: &ref,
			Description: fmt.Sprintf("Invoiced %sh exceeds ledger %sh for %s on %s",
				line.Hours.String(), chosen.entry.Hours.String(), line.Timekeeper, line.Date.Format("2006-01-02")),
			Expected:   chosen.entry.Hours,
			Actual:     line.Hours,
			Difference: line.Hours.Sub(chosen.entry.Hours),
			Status:     StatusPending,
		})
	}

	return discs, true
}

func matchExpenseLine(idx int, line LineItem, states []*ledgerState, cfg Config) ([]Discrepancy, bool) {
	lineIdx := idx

	for _, st := range states {
		if st.consumed || st.entry.Kind != LedgerExpense {
			continue
		}
		if !line.Date.IsZero() && !sameDay(st.entry.Date, line.Date) {
			continue
		}
		if st.entry.Amount.Sub(line.Amount).Abs().GreaterThan(cfg.AmountTolerance) {
			continue
		}
		st.consumed = true
		return nil, true
	}

	return []Discrepancy{{
		Kind:        UnbilledExpense,
		Severity:    SeverityMedium,
		LineIndex:   &lineIdx,
		Description: fmt.Sprintf("No approved expense record for: %s", truncate(line.Description, 100)),
		Expected:    decimal.Zero,
		Actual:      line.Amount,
		Difference:  line.Amount,
		Status:      StatusPending,
	}}, false
}

func sweepUnbilled(states []*ledgerState, cfg Config) []Discrepancy {
	var discs []Discrepancy

	for _, st := range states {
		if st.entry.Kind != LedgerTime || !st.entry.Billable {
			continue
		}

		if !st.consumed {
			ref := st.entry.ExternalID
			discs = append(discs, Discrepancy{
				Kind:      UnbilledTime,
				Severity:  SeverityMedium,
				LedgerRef: &ref,
				Description: fmt.Sprintf("Unbilled time entry: %s, %sh on %s",
					st.entry.Timekeeper, st.entry.Hours.String(), st.entry.Date.Format("2006-01-02")),
				Expected:   decimal.Zero,
				Actual:     st.entry.Amount,
				Difference: st.entry.Amount.Neg(),
				Status:     StatusPending,
			})
			continue
		}

		leftover := st.entry.Hours.Sub(st.invoicedHours)
		if leftover.GreaterThan(cfg.HoursTolerance) {
			ref := st.entry.ExternalID
			amount := leftover.Mul(st.entry.Rate)
			discs = append(discs, Discrepancy{
				Kind:      UnbilledTime,
				Severity:  SeverityMedium,
				LedgerRef: &ref,
				Description: fmt.Sprintf("Ledger shows %sh for %s on %s, invoice claims only %sh",
					st.entry.Hours.String(), st.entry.Timekeeper, st.entry.Date.Format("2006-01-02"), st.invoicedHours.String()),
				Expected:   decimal.Zero,
				Actual:     amount,
				Difference: amount.Neg(),
				Status:     StatusPending,
			})
		}
	}

	return discs
}

// sameDay compares calendar dates only; ledger timestamps may carry time
// components depending on the source system.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
