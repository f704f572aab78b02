package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Integration is a firm's connection to a practice management system.
type Integration struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirmID            uuid.UUID `gorm:"type:uuid;index:idx_firm_provider,unique"`
	Provider          string    `gorm:"index:idx_firm_provider,unique"`
	Status            string    `gorm:"index"`
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    *time.Time
	ProviderAccountID string
	ProviderData      datatypes.JSON
	LastSyncAt        *time.Time
	SyncError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
