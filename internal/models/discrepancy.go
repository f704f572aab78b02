package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Discrepancy is a detected mismatch. Resolved and ignored rows are retained
// for audit, never deleted. Version guards concurrent resolution edits.
type Discrepancy struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ReconciliationID uuid.UUID  `gorm:"type:uuid;index"`
	LineItemID       *uuid.UUID `gorm:"type:uuid;index"`
	LedgerExternalID string
	Kind             string `gorm:"index"`
	Severity         string `gorm:"index"`
	Description      string
	Expected         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Actual           decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status           string          `gorm:"index"`
	ResolutionNote   string
	ResolvedBy       string
	ResolvedAt       *time.Time
	Version          int
	Detail           datatypes.JSON
	Position         int `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
