package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/models"
)

type IntegrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

func (r *IntegrationRepository) GetByProvider(firmID uuid.UUID, provider string) (*models.Integration, error) {
	var integ models.Integration
	err := r.db.
		Where("firm_id = ? AND provider = ?", firmID, provider).
		First(&integ).Error
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

func (r *IntegrationRepository) Active() ([]models.Integration, error) {
	var integs []models.Integration
	err := r.db.Where("status = ?", "active").Find(&integs).Error
	return integs, err
}

func (r *IntegrationRepository) Save(integ *models.Integration) error {
	return r.db.Save(integ).Error
}
