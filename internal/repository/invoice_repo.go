package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ryanpate/invoicerecon/internal/models"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB if needed
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(inv).Error
}

func (r *InvoiceRepository) CreateLineItem(item *models.InvoiceLineItem) error {
	return r.db.Create(item).Error
}

func (r *InvoiceRepository) GetByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// LineItems returns the invoice's lines in their original order.
func (r *InvoiceRepository) LineItems(invoiceID uuid.UUID) ([]models.InvoiceLineItem, error) {
	var items []models.InvoiceLineItem
	err := r.db.
		Where("invoice_id = ?", invoiceID).
		Order("line_number ASC").
		Find(&items).Error
	return items, err
}

// SearchInvoices used for admin manual search with optional filters
func (r *InvoiceRepository) SearchInvoices(firmID uuid.UUID, query string, statuses []string) ([]models.Invoice, error) {
	var invoices []models.Invoice

	dbQuery := r.db.Model(&models.Invoice{}).Where("firm_id = ?", firmID)

	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbQuery = dbQuery.Where("LOWER(client_name) LIKE ? OR LOWER(matter_number) LIKE ?", like, like)
	}
	if len(statuses) > 0 {
		dbQuery = dbQuery.Where("status IN ?", statuses)
	}

	err := dbQuery.Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) UpdateStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}
