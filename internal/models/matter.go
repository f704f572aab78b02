package models

import (
	"time"

	"github.com/google/uuid"
)

// Matter is a legal case synced from practice management software.
type Matter struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	IntegrationID  uuid.UUID `gorm:"type:uuid;index:idx_matter_ext,unique"`
	FirmID         uuid.UUID `gorm:"type:uuid;index"`
	ExternalID     string    `gorm:"index:idx_matter_ext,unique"`
	DisplayNumber  string    `gorm:"index"`
	Description    string
	ClientName     string `gorm:"index"`
	Status         string
	PracticeArea   string
	BillingMethod  string
	SyncedAt       time.Time
}
