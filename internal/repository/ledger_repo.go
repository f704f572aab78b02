package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/models"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) DB() *gorm.DB {
	return r.db
}

// LatestCompletedBatch returns the newest fully synced batch for a firm.
// Reconciliations only ever read from a completed batch, never a partial sync.
func (r *LedgerRepository) LatestCompletedBatch(firmID uuid.UUID) (*models.SyncBatch, error) {
	var batch models.SyncBatch
	err := r.db.
		Where("firm_id = ? AND status = ?", firmID, "completed").
		Order("completed_at DESC").
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Slice returns the ledger entries of one batch for a matter within a period.
func (r *LedgerRepository) Slice(batchID uuid.UUID, matterNumber string, start, end time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := r.db.
		Where("sync_batch_id = ? AND matter_number = ?", batchID, matterNumber).
		Where("date >= ? AND date <= ?", start, end).
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) CreateBatch(batch *models.SyncBatch) error {
	return r.db.Create(batch).Error
}

func (r *LedgerRepository) CompleteBatch(batchID uuid.UUID, entryCount, matterCount int) error {
	now := time.Now()
	return r.db.Model(&models.SyncBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status":       "completed",
			"entry_count":  entryCount,
			"matter_count": matterCount,
			"completed_at": now,
		}).Error
}

func (r *LedgerRepository) FailBatch(batchID uuid.UUID, reason string) error {
	return r.db.Model(&models.SyncBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status": "error",
			"error":  reason,
		}).Error
}

func (r *LedgerRepository) CreateEntry(entry *models.TimeEntry) error {
	return r.db.Create(entry).Error
}

func (r *LedgerRepository) UpsertMatter(m *models.Matter) error {
	var existing models.Matter
	err := r.db.
		Where("integration_id = ? AND external_id = ?", m.IntegrationID, m.ExternalID).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(m).Error
	}
	if err != nil {
		return err
	}
	m.ID = existing.ID
	return r.db.Save(m).Error
}
