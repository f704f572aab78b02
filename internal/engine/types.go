package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemKind classifies an invoice line item.
type LineItemKind string

const (
	LineItemTime    LineItemKind = "time"
	LineItemExpense LineItemKind = "expense"
	LineItemFlatFee LineItemKind = "flat_fee"
)

// LedgerKind classifies a ledger entry pulled from practice management software.
type LedgerKind string

const (
	LedgerTime    LedgerKind = "time"
	LedgerExpense LedgerKind = "expense"
)

// DiscrepancyKind is the closed set of findings the engine can report.
type DiscrepancyKind string

const (
	MissingTime     DiscrepancyKind = "missing_time"
	RateMismatch    DiscrepancyKind = "rate_mismatch"
	UnbilledExpense DiscrepancyKind = "unbilled_expense"
	Overbilling     DiscrepancyKind = "overbilling"
	RetainerIssue   DiscrepancyKind = "retainer_issue"
	UnbilledTime    DiscrepancyKind = "unbilled_time"
	TotalMismatch   DiscrepancyKind = "total_mismatch"
	AmbiguousMatch  DiscrepancyKind = "ambiguous_match"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DiscrepancyStatus tracks human resolution. The engine only ever emits pending;
// resolved and ignored are reached through review actions and retained for audit.
type DiscrepancyStatus string

const (
	StatusPending  DiscrepancyStatus = "pending"
	StatusResolved DiscrepancyStatus = "resolved"
	StatusIgnored  DiscrepancyStatus = "ignored"
)

type RunStatus string

const (
	RunInProgress  RunStatus = "in_progress"
	RunComplete    RunStatus = "complete"
	RunNeedsReview RunStatus = "needs_review"
)

// LineItem is one extracted invoice line.
type LineItem struct {
	Date        time.Time
	Description string
	Timekeeper  string
	Hours       decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Kind        LineItemKind
}

// ExtractionRecord holds the structured fields parsed from one invoice document.
// Rows below the confidence threshold are excluded upstream by human review
// before the record reaches the engine.
type ExtractionRecord struct {
	FirmID          string
	ClientName      string
	MatterNumber    string
	InvoiceNumber   string
	InvoiceDate     time.Time
	LineItems       []LineItem
	Subtotal        decimal.Decimal
	Taxes           decimal.Decimal
	Total           decimal.Decimal
	RetainerApplied decimal.Decimal
	AmountDue       decimal.Decimal
	Confidence      map[string]float64
}

// LedgerEntry is an immutable snapshot of one billing record from the last
// completed sync. ExternalID identifies the record in the source system and
// CreatedAt orders equally-good candidates deterministically.
type LedgerEntry struct {
	ExternalID   string
	FirmID       string
	MatterNumber string
	Timekeeper   string
	Date         time.Time
	Hours        decimal.Decimal
	Rate         decimal.Decimal
	Amount       decimal.Decimal
	Kind         LedgerKind
	Billable     bool
	SourceSystem string
	CreatedAt    time.Time
}

// Discrepancy is one detected mismatch between the invoice and the ledger.
// LineIndex is nil for record-level and ledger-side findings; LedgerRef is nil
// when no ledger entry is involved.
type Discrepancy struct {
	Kind        DiscrepancyKind
	Severity    Severity
	LineIndex   *int
	LedgerRef   *string
	Description string
	Expected    decimal.Decimal
	Actual      decimal.Decimal
	Difference  decimal.Decimal
	Status      DiscrepancyStatus
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Discrepancies []Discrepancy
	Status        RunStatus
	MatchedLines  int
	TotalLines    int
}
