package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

func day(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		t.Fatalf("bad date %q: %v", v, err)
	}
	return d
}

func timeLine(t *testing.T, timekeeper, date, hours, rate string) LineItem {
	t.Helper()
	h := dec(t, hours)
	r := dec(t, rate)
	return LineItem{
		Date:        day(t, date),
		Description: "Legal services rendered",
		Timekeeper:  timekeeper,
		Hours:       h,
		Rate:        r,
		Amount:      h.Mul(r),
		Kind:        LineItemTime,
	}
}

func ledgerTime(t *testing.T, externalID, timekeeper, date, hours, rate string) LedgerEntry {
	t.Helper()
	h := dec(t, hours)
	r := dec(t, rate)
	return LedgerEntry{
		ExternalID:   externalID,
		FirmID:       "firm-1",
		MatterNumber: "M-100",
		Timekeeper:   timekeeper,
		Date:         day(t, date),
		Hours:        h,
		Rate:         r,
		Amount:       h.Mul(r),
		Kind:         LedgerTime,
		Billable:     true,
		SourceSystem: "clio",
		CreatedAt:    day(t, date),
	}
}

// record builds a structurally valid extraction record whose amount due is
// consistent with its line items, so only the scenario under test produces
// findings.
func record(t *testing.T, lines ...LineItem) ExtractionRecord {
	t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return ExtractionRecord{
		FirmID:       "firm-1",
		ClientName:   "Acme Corp",
		MatterNumber: "M-100",
		InvoiceDate:  day(t, "2024-01-31"),
		LineItems:    lines,
		Subtotal:     total,
		Total:        total,
		AmountDue:    total,
	}
}

func mustReconcile(t *testing.T, rec ExtractionRecord, entries []LedgerEntry, cfg Config) Result {
	t.Helper()
	result, err := Reconcile(rec, entries, cfg)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	return result
}

func kinds(result Result) []DiscrepancyKind {
	out := make([]DiscrepancyKind, 0, len(result.Discrepancies))
	for _, d := range result.Discrepancies {
		out = append(out, d.Kind)
	}
	return out
}

func TestExactMatchProducesNoDiscrepancies(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 0 {
		t.Fatalf("Expected zero discrepancies, got %v", kinds(result))
	}
	if result.Status != RunComplete {
		t.Errorf("Expected complete status, got %s", result.Status)
	}
	if result.MatchedLines != 1 {
		t.Errorf("Expected 1 matched line, got %d", result.MatchedLines)
	}
}

func TestEmptyLedgerReportsMissingTimePerLine(t *testing.T) {
	rec := record(t,
		timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"),
		timeLine(t, "A. Jones", "2024-01-08", "1.5", "275"),
	)

	result := mustReconcile(t, rec, nil, DefaultConfig())

	if len(result.Discrepancies) != 2 {
		t.Fatalf("Expected 2 discrepancies, got %v", kinds(result))
	}
	for i, d := range result.Discrepancies {
		if d.Kind != MissingTime {
			t.Errorf("Discrepancy %d: expected missing_time, got %s", i, d.Kind)
		}
		if d.LineIndex == nil || *d.LineIndex != i {
			t.Errorf("Discrepancy %d: wrong line index %v", i, d.LineIndex)
		}
	}
	if result.Status != RunNeedsReview {
		t.Errorf("Expected needs_review, got %s", result.Status)
	}
}

func TestNoTimekeeperDateMatchIsMissingTime(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	// Same timekeeper, different date.
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-06", "3.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	found := 0
	for _, d := range result.Discrepancies {
		if d.Kind == MissingTime {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("Expected exactly one missing_time, got %v", kinds(result))
	}
}

func TestRateToleranceBoundary(t *testing.T) {
	cfg := DefaultConfig() // tolerance 0.01

	// Exactly at tolerance: no discrepancy.
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350.01"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350.00")}
	result := mustReconcile(t, rec, ledger, cfg)
	if len(result.Discrepancies) != 0 {
		t.Fatalf("At tolerance: expected no discrepancy, got %v", kinds(result))
	}

	// One cent beyond: rate mismatch.
	rec = record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350.02"))
	result = mustReconcile(t, rec, ledger, cfg)
	if len(result.Discrepancies) != 1 || result.Discrepancies[0].Kind != RateMismatch {
		t.Fatalf("Past tolerance: expected one rate_mismatch, got %v", kinds(result))
	}
}

func TestRateMismatchFuzzyTimekeeper(t *testing.T) {
	// Invoice says "J. Smith" at $350/hr, ledger says "J Smith" at $375/hr.
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J Smith", "2024-01-05", "3.0", "375")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 1 {
		t.Fatalf("Expected exactly one discrepancy, got %v", kinds(result))
	}
	d := result.Discrepancies[0]
	if d.Kind != RateMismatch {
		t.Fatalf("Expected rate_mismatch, got %s", d.Kind)
	}
	if !d.Expected.Equal(dec(t, "375")) {
		t.Errorf("Expected value 375, got %s", d.Expected)
	}
	if !d.Actual.Equal(dec(t, "350")) {
		t.Errorf("Actual value should be 350, got %s", d.Actual)
	}
	if !d.Difference.Equal(dec(t, "-25")) {
		t.Errorf("Difference should be -25, got %s", d.Difference)
	}
}

func TestLedgerHoursExceedingInvoiceIsUnbilledNotOverbilling(t *testing.T) {
	// Ledger has 5.0h, invoice claims only 3.0h: the inverse of overbilling.
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "5.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	for _, d := range result.Discrepancies {
		if d.Kind == Overbilling {
			t.Fatalf("Underclaimed invoice must not produce overbilling")
		}
	}
	unbilled := 0
	for _, d := range result.Discrepancies {
		if d.Kind == UnbilledTime {
			unbilled++
			if !d.Actual.Equal(dec(t, "700")) { // 2.0h leftover at $350
				t.Errorf("Unbilled amount should be 700, got %s", d.Actual)
			}
			if !d.Difference.Equal(dec(t, "-700")) {
				t.Errorf("Difference should be -700, got %s", d.Difference)
			}
		}
	}
	if unbilled != 1 {
		t.Fatalf("Expected exactly one unbilled_time, got %v", kinds(result))
	}
}

func TestOverbilling(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "5.0", "350"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 1 {
		t.Fatalf("Expected one discrepancy, got %v", kinds(result))
	}
	d := result.Discrepancies[0]
	if d.Kind != Overbilling {
		t.Fatalf("Expected overbilling, got %s", d.Kind)
	}
	if !d.Expected.Equal(dec(t, "3.0")) || !d.Actual.Equal(dec(t, "5.0")) {
		t.Errorf("Expected 3.0/5.0 hours, got %s/%s", d.Expected, d.Actual)
	}
}

func TestUnmatchedLedgerEntryReported(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{
		ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350"),
		ledgerTime(t, "te-2", "A. Jones", "2024-01-06", "2.0", "275"),
	}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 1 {
		t.Fatalf("Expected one discrepancy, got %v", kinds(result))
	}
	d := result.Discrepancies[0]
	if d.Kind != UnbilledTime {
		t.Fatalf("Expected unbilled_time, got %s", d.Kind)
	}
	if d.LedgerRef == nil || *d.LedgerRef != "te-2" {
		t.Errorf("Wrong ledger ref: %v", d.LedgerRef)
	}
}

func TestNonBillableLedgerEntryNotSwept(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	nonBillable := ledgerTime(t, "te-2", "A. Jones", "2024-01-06", "2.0", "275")
	nonBillable.Billable = false
	ledger := []LedgerEntry{
		ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350"),
		nonBillable,
	}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 0 {
		t.Fatalf("Non-billable entries must not be swept, got %v", kinds(result))
	}
}

func TestRetainerBoundary(t *testing.T) {
	line := timeLine(t, "J. Smith", "2024-01-05", "3.0", "350")

	build := func(retainer string) ExtractionRecord {
		rec := record(t, line)
		rec.RetainerApplied = dec(t, retainer)
		rec.AmountDue = rec.AmountDue.Sub(rec.RetainerApplied)
		return rec
	}
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350")}

	cfg := DefaultConfig()
	cfg.RetainerBalance = dec(t, "500.00")

	// Applied equals balance: no discrepancy.
	result := mustReconcile(t, build("500.00"), ledger, cfg)
	if len(result.Discrepancies) != 0 {
		t.Fatalf("At balance: expected no discrepancy, got %v", kinds(result))
	}

	// One cent over: retainer issue.
	result = mustReconcile(t, build("500.01"), ledger, cfg)
	if len(result.Discrepancies) != 1 || result.Discrepancies[0].Kind != RetainerIssue {
		t.Fatalf("Past balance: expected one retainer_issue, got %v", kinds(result))
	}
	if !result.Discrepancies[0].Difference.Equal(dec(t, "0.01")) {
		t.Errorf("Difference should be 0.01, got %s", result.Discrepancies[0].Difference)
	}
}

func TestInvoiceArithmeticMismatch(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	rec.AmountDue = rec.AmountDue.Add(dec(t, "10"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 1 || result.Discrepancies[0].Kind != TotalMismatch {
		t.Fatalf("Expected one total_mismatch, got %v", kinds(result))
	}
}

func TestUnbilledExpense(t *testing.T) {
	expense := LineItem{
		Date:        day(t, "2024-01-10"),
		Description: "Court filing fee",
		Amount:      dec(t, "125.00"),
		Kind:        LineItemExpense,
	}
	rec := record(t, expense)

	result := mustReconcile(t, rec, nil, DefaultConfig())

	if len(result.Discrepancies) != 1 || result.Discrepancies[0].Kind != UnbilledExpense {
		t.Fatalf("Expected one unbilled_expense, got %v", kinds(result))
	}

	// With an approved expense record in the ledger the line matches cleanly.
	ledger := []LedgerEntry{{
		ExternalID: "ex-1",
		Timekeeper: "J. Smith",
		Date:       day(t, "2024-01-10"),
		Amount:     dec(t, "125.00"),
		Kind:       LedgerExpense,
		Billable:   true,
		CreatedAt:  day(t, "2024-01-10"),
	}}
	result = mustReconcile(t, rec, ledger, DefaultConfig())
	if len(result.Discrepancies) != 0 {
		t.Fatalf("Expected no discrepancies with approved expense, got %v", kinds(result))
	}
}

func TestAmbiguousMatchInDeadZone(t *testing.T) {
	// "Johnson" vs "Johnstone" scores ~0.78: below the 0.8 threshold but
	// inside the 0.1 dead zone.
	rec := record(t, timeLine(t, "Johnson", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{ledgerTime(t, "te-1", "Johnstone", "2024-01-05", "3.0", "350")}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	if len(result.Discrepancies) != 1 {
		t.Fatalf("Expected exactly one discrepancy, got %v", kinds(result))
	}
	if result.Discrepancies[0].Kind != AmbiguousMatch {
		t.Fatalf("Expected ambiguous_match, got %s", result.Discrepancies[0].Kind)
	}
	if result.Status != RunNeedsReview {
		t.Errorf("Expected needs_review, got %s", result.Status)
	}
}

func TestTieBreakPrefersClosestHours(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	ledger := []LedgerEntry{
		ledgerTime(t, "te-long", "J. Smith", "2024-01-05", "5.0", "350"),
		ledgerTime(t, "te-exact", "J. Smith", "2024-01-05", "3.0", "350"),
	}

	result := mustReconcile(t, rec, ledger, DefaultConfig())

	// The 3.0h entry should be consumed; the 5.0h entry surfaces as unbilled.
	if len(result.Discrepancies) != 1 || result.Discrepancies[0].Kind != UnbilledTime {
		t.Fatalf("Expected one unbilled_time, got %v", kinds(result))
	}
	if *result.Discrepancies[0].LedgerRef != "te-long" {
		t.Errorf("Wrong entry consumed: unbilled ref is %s", *result.Discrepancies[0].LedgerRef)
	}
}

func TestIdempotence(t *testing.T) {
	rec := record(t,
		timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"),
		timeLine(t, "A. Jones", "2024-01-08", "1.5", "275"),
		timeLine(t, "M. Garcia", "2024-01-09", "2.0", "425"),
	)
	ledger := []LedgerEntry{
		ledgerTime(t, "te-1", "J Smith", "2024-01-05", "3.0", "375"),
		ledgerTime(t, "te-2", "A. Jones", "2024-01-08", "1.5", "275"),
		ledgerTime(t, "te-3", "R. Patel", "2024-01-10", "4.0", "300"),
	}
	cfg := DefaultConfig()

	first := mustReconcile(t, rec, ledger, cfg)
	second := mustReconcile(t, rec, ledger, cfg)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Two runs over identical inputs produced different results")
	}
}

func TestDeterministicUnderInputReordering(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	a := ledgerTime(t, "te-1", "J. Smith", "2024-01-05", "3.1", "350")
	b := ledgerTime(t, "te-2", "A. Jones", "2024-01-04", "2.0", "275")
	c := ledgerTime(t, "te-3", "R. Patel", "2024-01-06", "4.0", "300")

	first := mustReconcile(t, rec, []LedgerEntry{a, b, c}, DefaultConfig())
	second := mustReconcile(t, rec, []LedgerEntry{c, a, b}, DefaultConfig())

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Ledger input order changed the result")
	}
}

func TestValidationFailsFast(t *testing.T) {
	rec := record(t, timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"))
	rec.MatterNumber = ""

	_, err := Reconcile(rec, nil, DefaultConfig())
	if err == nil {
		t.Fatal("Expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if verr.Field != "matter_number" {
		t.Errorf("Expected matter_number field, got %s", verr.Field)
	}
}

func TestValidationRejectsTimeLineWithoutTimekeeper(t *testing.T) {
	line := timeLine(t, "J. Smith", "2024-01-05", "3.0", "350")
	line.Timekeeper = ""
	rec := record(t, line)

	_, err := Reconcile(rec, nil, DefaultConfig())
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if verr.Field != "line_items[0].timekeeper" {
		t.Errorf("Wrong field: %s", verr.Field)
	}
}

func TestProgressCallback(t *testing.T) {
	rec := record(t,
		timeLine(t, "J. Smith", "2024-01-05", "3.0", "350"),
		timeLine(t, "A. Jones", "2024-01-08", "1.5", "275"),
	)
	cfg := DefaultConfig()
	cfg.ProgressEvery = 1

	var calls [][2]int
	_, err := ReconcileWithProgress(rec, nil, cfg, func(processed, total int) {
		calls = append(calls, [2]int{processed, total})
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// One call per line plus the final call.
	if len(calls) != 3 {
		t.Fatalf("Expected 3 progress calls, got %d", len(calls))
	}
	last := calls[len(calls)-1]
	if last[0] != 2 || last[1] != 2 {
		t.Errorf("Final progress should be 2/2, got %d/%d", last[0], last[1])
	}
}

func TestFlatFeeLinesSkipMatching(t *testing.T) {
	flat := LineItem{
		Description: "Flat fee: incorporation package",
		Amount:      dec(t, "1500.00"),
		Kind:        LineItemFlatFee,
	}
	rec := record(t, flat)

	result := mustReconcile(t, rec, nil, DefaultConfig())
	if len(result.Discrepancies) != 0 {
		t.Fatalf("Flat fee lines must not be matched, got %v", kinds(result))
	}
	if result.Status != RunComplete {
		t.Errorf("Expected complete, got %s", result.Status)
	}
}
