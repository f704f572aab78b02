package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncBatch groups the entries of one ledger pull. Reconciliations only read
// entries from the firm's latest completed batch, so a sync in progress can
// never leak a partial ledger view into a run.
type SyncBatch struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	IntegrationID uuid.UUID `gorm:"type:uuid;index"`
	FirmID        uuid.UUID `gorm:"type:uuid;index"`
	Provider      string
	EntryCount    int
	MatterCount   int
	Status        string `gorm:"index"`
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
}
