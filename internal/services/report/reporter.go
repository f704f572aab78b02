package report

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ryanpate/invoicerecon/internal/models"
)

// KindTotal aggregates discrepancies of one kind.
type KindTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Summary struct {
	ReconciliationID string               `json:"reconciliation_id"`
	MatterNumber     string               `json:"matter_number"`
	PeriodStart      string               `json:"period_start"`
	PeriodEnd        string               `json:"period_end"`
	Status           string               `json:"status"`
	LineItems        int                  `json:"line_items_processed"`
	Matched          int                  `json:"matched_items"`
	MatchRate        float64              `json:"match_rate"`
	Discrepancies    int                  `json:"total_discrepancies"`
	InvoiceAmount    decimal.Decimal      `json:"total_invoice_amount"`
	DiscrepancyTotal decimal.Decimal      `json:"total_discrepancy_amount"`
	ByKind           map[string]KindTotal `json:"discrepancies_by_kind"`
	BySeverity       map[string]int64     `json:"discrepancies_by_severity"`
	ByStatus         map[string]int64     `json:"resolution_status"`
	GeneratedAt      string               `json:"generated_at"`
}

// BuildSummary rolls up one reconciliation's discrepancies.
func BuildSummary(rec *models.Reconciliation, discs []models.Discrepancy) Summary {
	byKind := map[string]KindTotal{}
	bySeverity := map[string]int64{}
	byStatus := map[string]int64{}

	for _, d := range discs {
		kt := byKind[d.Kind]
		kt.Count++
		kt.Amount = kt.Amount.Add(d.Difference.Abs())
		byKind[d.Kind] = kt
		bySeverity[d.Severity]++
		byStatus[d.Status]++
	}

	matchRate := 0.0
	if rec.LineItemCount > 0 {
		matchRate = float64(rec.MatchedCount) / float64(rec.LineItemCount) * 100
	}

	return Summary{
		ReconciliationID: rec.ID.String(),
		MatterNumber:     rec.MatterNumber,
		PeriodStart:      rec.PeriodStart.Format("2006-01-02"),
		PeriodEnd:        rec.PeriodEnd.Format("2006-01-02"),
		Status:           rec.Status,
		LineItems:        rec.LineItemCount,
		Matched:          rec.MatchedCount,
		MatchRate:        matchRate,
		Discrepancies:    len(discs),
		InvoiceAmount:    rec.InvoiceAmount,
		DiscrepancyTotal: rec.DiscrepancyTotal,
		ByKind:           byKind,
		BySeverity:       bySeverity,
		ByStatus:         byStatus,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}
}

// BuildCSV renders the discrepancy list as a CSV document.
func BuildCSV(rec *models.Reconciliation, discs []models.Discrepancy) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{
		"Type",
		"Severity",
		"Description",
		"Matter",
		"Ledger Ref",
		"Expected Value",
		"Actual Value",
		"Difference",
		"Status",
		"Resolution Note",
	}); err != nil {
		return "", err
	}

	for _, d := range discs {
		row := []string{
			d.Kind,
			strings.ToUpper(d.Severity),
			d.Description,
			rec.MatterNumber,
			d.LedgerExternalID,
			"$" + d.Expected.StringFixed(2),
			"$" + d.Actual.StringFixed(2),
			"$" + d.Difference.StringFixed(2),
			d.Status,
			d.ResolutionNote,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}
