package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceLineItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID `gorm:"type:uuid;index"`
	LineNumber  int       `gorm:"index"`
	Date        time.Time
	Description string
	Timekeeper  string
	Hours       decimal.Decimal `gorm:"type:decimal(6,2)"`
	Rate        decimal.Decimal `gorm:"type:decimal(10,2)"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	ItemType    string          `gorm:"index"`
	Confidence  float64
	CreatedAt   time.Time
}
