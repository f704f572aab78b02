package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciliation is one matching run of an invoice against the ledger.
type Reconciliation struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirmID           uuid.UUID `gorm:"type:uuid;index"`
	InvoiceID        uuid.UUID `gorm:"type:uuid;index"`
	SyncBatchID      uuid.UUID `gorm:"type:uuid"`
	MatterNumber     string    `gorm:"index"`
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           string `gorm:"index"`
	ErrorMessage     string
	LineItemCount    int
	MatchedCount     int
	DiscrepancyCount int
	InvoiceAmount    decimal.Decimal `gorm:"type:decimal(14,2)"`
	DiscrepancyTotal decimal.Decimal `gorm:"type:decimal(14,2)"`
	StartedAt        time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
}
