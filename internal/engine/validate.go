package engine

import "fmt"

// ValidationError marks a structurally invalid extraction record. Detected
// business findings are never surfaced this way; only malformed input is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid extraction record: %s: %s", e.Field, e.Reason)
}

// Validate fails fast on the first malformed field. It never coerces or drops
// a line item.
func Validate(rec ExtractionRecord) error {
	if rec.FirmID == "" {
		return &ValidationError{Field: "firm_id", Reason: "required"}
	}
	if rec.MatterNumber == "" {
		return &ValidationError{Field: "matter_number", Reason: "required"}
	}
	if rec.ClientName == "" {
		return &ValidationError{Field: "client_name", Reason: "required"}
	}
	if rec.InvoiceDate.IsZero() {
		return &ValidationError{Field: "invoice_date", Reason: "required"}
	}
	if rec.AmountDue.IsNegative() {
		return &ValidationError{Field: "amount_due", Reason: "must not be negative"}
	}
	if rec.RetainerApplied.IsNegative() {
		return &ValidationError{Field: "retainer_applied", Reason: "must not be negative"}
	}

	for i, item := range rec.LineItems {
		field := func(name string) string {
			return fmt.Sprintf("line_items[%d].%s", i, name)
		}
		switch item.Kind {
		case LineItemTime, LineItemExpense, LineItemFlatFee:
		default:
			return &ValidationError{Field: field("kind"), Reason: "unknown line item kind"}
		}
		if item.Amount.IsNegative() {
			return &ValidationError{Field: field("amount"), Reason: "must not be negative"}
		}
		if item.Kind == LineItemTime {
			if item.Date.IsZero() {
				return &ValidationError{Field: field("date"), Reason: "required for time entries"}
			}
			if item.Timekeeper == "" {
				return &ValidationError{Field: field("timekeeper"), Reason: "required for time entries"}
			}
			if item.Hours.IsNegative() {
				return &ValidationError{Field: field("hours"), Reason: "must not be negative"}
			}
			if item.Rate.IsNegative() {
				return &ValidationError{Field: field("rate"), Reason: "must not be negative"}
			}
		}
	}

	return nil
}
