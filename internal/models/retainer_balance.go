package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetainerBalance is the prepaid balance a client holds with a firm.
type RetainerBalance struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FirmID     uuid.UUID       `gorm:"type:uuid;index:idx_retainer_client,unique"`
	ClientName string          `gorm:"index:idx_retainer_client,unique"`
	Balance    decimal.Decimal `gorm:"type:decimal(12,2)"`
	UpdatedAt  time.Time
	CreatedAt  time.Time
}
