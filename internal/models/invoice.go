package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Invoice is the persisted extraction record for one uploaded document.
// Created once per successfully parsed document; immutable except for
// human-correction overrides applied during review.
type Invoice struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirmID           uuid.UUID `gorm:"type:uuid;index"`
	InvoiceNumber    string    `gorm:"index"`
	ClientName       string    `gorm:"index"`
	MatterNumber     string    `gorm:"index"`
	InvoiceDate      time.Time
	OriginalFilename string
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Taxes            decimal.Decimal `gorm:"type:decimal(12,2)"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2)"`
	RetainerApplied  decimal.Decimal `gorm:"type:decimal(12,2)"`
	AmountDue        decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status           string          `gorm:"index"`
	// Confidence holds per-field extraction confidence in [0,1].
	Confidence datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
