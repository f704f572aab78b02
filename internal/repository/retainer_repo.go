package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/models"
)

type RetainerRepository struct {
	db *gorm.DB
}

func NewRetainerRepository(db *gorm.DB) *RetainerRepository {
	return &RetainerRepository{db: db}
}

// BalanceFor returns the client's available retainer. A firm with no tracked
// balance has zero available.
func (r *RetainerRepository) BalanceFor(firmID uuid.UUID, clientName string) (decimal.Decimal, error) {
	var bal models.RetainerBalance
	err := r.db.
		Where("firm_id = ? AND LOWER(client_name) = LOWER(?)", firmID, clientName).
		First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Balance, nil
}

func (r *RetainerRepository) Upsert(firmID uuid.UUID, clientName string, balance decimal.Decimal) (*models.RetainerBalance, error) {
	var bal models.RetainerBalance
	err := r.db.
		Where("firm_id = ? AND LOWER(client_name) = LOWER(?)", firmID, clientName).
		First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		bal = models.RetainerBalance{
			ID:         uuid.New(),
			FirmID:     firmID,
			ClientName: clientName,
			Balance:    balance,
			CreatedAt:  time.Now(),
		}
		if err := r.db.Create(&bal).Error; err != nil {
			return nil, err
		}
		return &bal, nil
	}
	if err != nil {
		return nil, err
	}
	bal.Balance = balance
	if err := r.db.Save(&bal).Error; err != nil {
		return nil, err
	}
	return &bal, nil
}
