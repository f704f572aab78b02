package models

import (
	"time"

	"github.com/google/uuid"
)

type DiscrepancyAuditLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DiscrepancyID  uuid.UUID `gorm:"type:uuid;index"`
	Action         string
	PreviousStatus string
	NewStatus      string
	PerformedBy    string
	Note           string
	CreatedAt      time.Time
}
