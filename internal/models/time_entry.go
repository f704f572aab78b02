package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeEntry mirrors one billing record from the source system as of the sync
// batch it belongs to. Entries are superseded by later batches, never mutated,
// so a reconciliation always reads a consistent snapshot.
type TimeEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SyncBatchID   uuid.UUID `gorm:"type:uuid;index"`
	IntegrationID uuid.UUID `gorm:"type:uuid;index"`
	FirmID        uuid.UUID `gorm:"type:uuid;index"`
	MatterNumber  string    `gorm:"index"`
	ExternalID    string    `gorm:"index"`
	EntryType     string    `gorm:"index"`
	Date          time.Time `gorm:"index"`
	Description   string
	Timekeeper    string          `gorm:"index"`
	Hours         decimal.Decimal `gorm:"type:decimal(6,2)"`
	Rate          decimal.Decimal `gorm:"type:decimal(10,2)"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)"`
	Billable      bool
	Billed        bool
	SourceSystem  string
	SourceCreated time.Time
	CreatedAt     time.Time
}
