package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/models"
)

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) DB() *gorm.DB {
	return r.db
}

func (r *ReconciliationRepository) Create(rec *models.Reconciliation) error {
	return r.db.Create(rec).Error
}

func (r *ReconciliationRepository) GetByID(id uuid.UUID) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	if err := r.db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ReconciliationRepository) MarkFailed(id uuid.UUID, reason string) error {
	return r.db.Model(&models.Reconciliation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        "error",
			"error_message": reason,
		}).Error
}

// Discrepancies returns a page ordered by engine position, with cursor pagination.
func (r *ReconciliationRepository) Discrepancies(reconID uuid.UUID, status string, cursor string, limit int) ([]models.Discrepancy, string, bool, error) {
	var rows []models.Discrepancy
	query := r.db.
		Where("reconciliation_id = ?", reconID).
		Order("position ASC, id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if cursor != "" {
		var after models.Discrepancy
		if err := r.db.First(&after, "id = ?", cursor).Error; err == nil {
			query = query.Where("(position > ?) OR (position = ? AND id > ?)", after.Position, after.Position, after.ID)
		}
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(rows) > limit {
		hasMore = true
		nextCursor = rows[limit-1].ID.String()
		rows = rows[:limit]
	}
	return rows, nextCursor, hasMore, nil
}

func (r *ReconciliationRepository) GetDiscrepancy(id uuid.UUID) (*models.Discrepancy, error) {
	var d models.Discrepancy
	if err := r.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ReconciliationRepository) AllDiscrepancies(reconID uuid.UUID) ([]models.Discrepancy, error) {
	var rows []models.Discrepancy
	err := r.db.
		Where("reconciliation_id = ?", reconID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReconciliationRepository) CreateAuditLog(entry *models.DiscrepancyAuditLog) error {
	return r.db.Create(entry).Error
}
