package models

import (
	"time"

	"github.com/google/uuid"
)

type Firm struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name               string    `gorm:"index"`
	Slug               string    `gorm:"uniqueIndex"`
	SubscriptionTier   string
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
