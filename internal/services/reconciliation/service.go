package reconciliation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/engine"
	"github.com/ryanpate/invoicerecon/internal/models"
	"github.com/ryanpate/invoicerecon/internal/repository"
)

var (
	ErrVersionConflict = errors.New("discrepancy was modified concurrently")
	ErrInvalidStatus   = errors.New("invalid resolution status")
	ErrNoLedgerBatch   = errors.New("no completed ledger sync for firm")
)

type Progress struct {
	ProcessedCount int
	Total          int
	Status         string
}

type Service struct {
	invoiceRepo  *repository.InvoiceRepository
	ledgerRepo   *repository.LedgerRepository
	reconRepo    *repository.ReconciliationRepository
	retainerRepo *repository.RetainerRepository
	db           *gorm.DB
	engineCfg    engine.Config

	progressCache sync.Map // reconciliationID -> *Progress
}

func NewService(
	invoiceRepo *repository.InvoiceRepository,
	ledgerRepo *repository.LedgerRepository,
	reconRepo *repository.ReconciliationRepository,
	retainerRepo *repository.RetainerRepository,
	engineCfg engine.Config,
) *Service {
	return &Service{
		invoiceRepo:  invoiceRepo,
		ledgerRepo:   ledgerRepo,
		reconRepo:    reconRepo,
		retainerRepo: retainerRepo,
		db:           invoiceRepo.DB(),
		engineCfg:    engineCfg,
	}
}

// CreateRun creates a reconciliation for one invoice against the firm's latest
// completed ledger snapshot. Period defaults to the invoice month when unset.
func (s *Service) CreateRun(firmID, invoiceID uuid.UUID, periodStart, periodEnd time.Time) (*models.Reconciliation, error) {
	invoice, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}

	batch, err := s.ledgerRepo.LatestCompletedBatch(firmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoLedgerBatch
		}
		return nil, err
	}

	if periodStart.IsZero() {
		periodStart = time.Date(invoice.InvoiceDate.Year(), invoice.InvoiceDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		periodEnd = periodStart.AddDate(0, 1, -1)
	}

	rec := &models.Reconciliation{
		ID:           uuid.New(),
		FirmID:       firmID,
		InvoiceID:    invoiceID,
		SyncBatchID:  batch.ID,
		MatterNumber: invoice.MatterNumber,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		Status:       "in_progress",
		StartedAt:    time.Now(),
		CreatedAt:    time.Now(),
	}
	if err := s.reconRepo.Create(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Run executes the matching engine for a reconciliation and persists the
// result. Re-running against the same invoice and ledger snapshot produces the
// same discrepancy set; resolved and ignored rows survive re-runs for audit.
func (s *Service) Run(reconID uuid.UUID) error {
	rec, err := s.reconRepo.GetByID(reconID)
	if err != nil {
		return err
	}

	invoice, err := s.invoiceRepo.GetByID(rec.InvoiceID)
	if err != nil {
		return err
	}
	lines, err := s.invoiceRepo.LineItems(invoice.ID)
	if err != nil {
		return err
	}
	entries, err := s.ledgerRepo.Slice(rec.SyncBatchID, rec.MatterNumber, rec.PeriodStart, rec.PeriodEnd)
	if err != nil {
		return err
	}
	balance, err := s.retainerRepo.BalanceFor(rec.FirmID, invoice.ClientName)
	if err != nil {
		return err
	}

	cfg := s.engineCfg
	cfg.RetainerBalance = balance

	record := toExtractionRecord(invoice, lines)
	ledger := toLedgerEntries(entries)

	s.progressCache.Store(reconID, &Progress{Total: len(lines), Status: "in_progress"})
	progress := func(processed, total int) {
		s.progressCache.Store(reconID, &Progress{ProcessedCount: processed, Total: total, Status: "in_progress"})
	}

	result, err := engine.ReconcileWithProgress(record, ledger, cfg, progress)
	if err != nil {
		log.Printf("reconciliation %s failed: %v", reconID, err)
		s.progressCache.Store(reconID, &Progress{Status: "error"})
		if ferr := s.reconRepo.MarkFailed(reconID, err.Error()); ferr != nil {
			return ferr
		}
		return err
	}

	if err := s.persistResult(rec, invoice, lines, result); err != nil {
		return err
	}

	s.progressCache.Store(reconID, &Progress{
		ProcessedCount: result.TotalLines,
		Total:          result.TotalLines,
		Status:         string(result.Status),
	})
	return nil
}

func (s *Service) persistResult(rec *models.Reconciliation, invoice *models.Invoice, lines []models.InvoiceLineItem, result engine.Result) error {
	discrepancyTotal := decimal.Zero
	for _, d := range result.Discrepancies {
		discrepancyTotal = discrepancyTotal.Add(d.Difference.Abs())
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing []models.Discrepancy
		if err := tx.Where("reconciliation_id = ?", rec.ID).Find(&existing).Error; err != nil {
			return err
		}

		// Rows a human already acted on are retained; their finding is not
		// re-inserted when the engine reports it again.
		retained := make(map[string]bool)
		for _, d := range existing {
			if d.Status != string(engine.StatusPending) {
				retained[discrepancyKey(d.Kind, lineIndexOf(lines, d.LineItemID), d.LedgerExternalID)] = true
			}
		}

		if err := tx.
			Where("reconciliation_id = ? AND status = ?", rec.ID, engine.StatusPending).
			Delete(&models.Discrepancy{}).Error; err != nil {
			return err
		}

		pending := 0
		for pos, d := range result.Discrepancies {
			var ledgerRef string
			if d.LedgerRef != nil {
				ledgerRef = *d.LedgerRef
			}
			if retained[discrepancyKey(string(d.Kind), d.LineIndex, ledgerRef)] {
				continue
			}
			pending++

			var lineItemID *uuid.UUID
			if d.LineIndex != nil && *d.LineIndex < len(lines) {
				id := lines[*d.LineIndex].ID
				lineItemID = &id
			}

			detail, _ := json.Marshal(map[string]interface{}{
				"kind":       d.Kind,
				"line_index": d.LineIndex,
				"ledger_ref": ledgerRef,
				"expected":   d.Expected,
				"actual":     d.Actual,
			})

			row := models.Discrepancy{
				ID:               uuid.New(),
				ReconciliationID: rec.ID,
				LineItemID:       lineItemID,
				LedgerExternalID: ledgerRef,
				Kind:             string(d.Kind),
				Severity:         string(d.Severity),
				Description:      d.Description,
				Expected:         d.Expected,
				Actual:           d.Actual,
				Difference:       d.Difference,
				Status:           string(d.Status),
				Version:          1,
				Detail:           detail,
				Position:         pos,
				CreatedAt:        time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		status := string(result.Status)
		if pending == 0 && status == string(engine.RunNeedsReview) {
			// Every finding was already resolved or ignored in a prior run.
			status = string(engine.RunComplete)
		}

		now := time.Now()
		return tx.Model(&models.Reconciliation{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"status":            status,
				"line_item_count":   result.TotalLines,
				"matched_count":     result.MatchedLines,
				"discrepancy_count": len(result.Discrepancies),
				"invoice_amount":    invoice.Total,
				"discrepancy_total": discrepancyTotal,
				"completed_at":      now,
			}).Error
	})
}

func discrepancyKey(kind string, lineIndex *int, ledgerRef string) string {
	idx := -1
	if lineIndex != nil {
		idx = *lineIndex
	}
	return fmt.Sprintf("%s|%d|%s", kind, idx, ledgerRef)
}

func lineIndexOf(lines []models.InvoiceLineItem, lineItemID *uuid.UUID) *int {
	if lineItemID == nil {
		return nil
	}
	for i := range lines {
		if lines[i].ID == *lineItemID {
			idx := i
			return &idx
		}
	}
	return nil
}

// Resolve transitions a discrepancy to resolved or ignored. The caller's
// version must match the stored row or the update is rejected with
// ErrVersionConflict.
func (s *Service) Resolve(discrepancyID uuid.UUID, status, note, performedBy string, version int) (*models.Discrepancy, error) {
	if status != string(engine.StatusResolved) && status != string(engine.StatusIgnored) {
		return nil, ErrInvalidStatus
	}

	prev, err := s.reconRepo.GetDiscrepancy(discrepancyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := s.db.Model(&models.Discrepancy{}).
		Where("id = ? AND version = ?", discrepancyID, version).
		Updates(map[string]interface{}{
			"status":          status,
			"resolution_note": note,
			"resolved_by":     performedBy,
			"resolved_at":     now,
			"version":         version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}

	if err := s.reconRepo.CreateAuditLog(&models.DiscrepancyAuditLog{
		ID:             uuid.New(),
		DiscrepancyID:  discrepancyID,
		Action:         "resolution",
		PreviousStatus: prev.Status,
		NewStatus:      status,
		PerformedBy:    performedBy,
		Note:           note,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}

	if err := s.refreshRunStatus(prev.ReconciliationID); err != nil {
		return nil, err
	}

	return s.reconRepo.GetDiscrepancy(discrepancyID)
}

// refreshRunStatus marks a reconciliation complete once nothing is pending.
// A run with resolved or ignored rows stays terminal either way.
func (s *Service) refreshRunStatus(reconID uuid.UUID) error {
	var pending int64
	if err := s.db.Model(&models.Discrepancy{}).
		Where("reconciliation_id = ? AND status = ?", reconID, engine.StatusPending).
		Count(&pending).Error; err != nil {
		return err
	}

	status := string(engine.RunComplete)
	if pending > 0 {
		status = string(engine.RunNeedsReview)
	}
	return s.db.Model(&models.Reconciliation{}).
		Where("id = ? AND status IN ?", reconID, []string{"complete", "needs_review"}).
		Update("status", status).Error
}

func (s *Service) GetRun(reconID uuid.UUID) (*models.Reconciliation, error) {
	return s.reconRepo.GetByID(reconID)
}

func (s *Service) GetProgress(reconID uuid.UUID) (*Progress, bool) {
	if val, ok := s.progressCache.Load(reconID); ok {
		return val.(*Progress), true
	}
	return nil, false
}

func (s *Service) ListDiscrepancies(reconID uuid.UUID, status, cursor string, limit int) ([]models.Discrepancy, string, bool, error) {
	return s.reconRepo.Discrepancies(reconID, status, cursor, limit)
}

func (s *Service) ListAllDiscrepancies(reconID uuid.UUID) ([]models.Discrepancy, error) {
	return s.reconRepo.AllDiscrepancies(reconID)
}

type RunStats struct {
	Total    int64            `json:"total"`
	ByKind   map[string]int64 `json:"by_kind"`
	ByStatus map[string]int64 `json:"by_status"`
}

type statRow struct {
	Kind   string
	Status string
	Count  int64
}

func (s *Service) GetRunStats(reconID uuid.UUID) (RunStats, error) {
	stats := RunStats{ByKind: map[string]int64{}, ByStatus: map[string]int64{}}
	var rows []statRow

	err := s.db.Model(&models.Discrepancy{}).
		Where("reconciliation_id = ?", reconID).
		Select("kind, status, COUNT(*) as count").
		Group("kind, status").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, r := range rows {
		stats.Total += r.Count
		stats.ByKind[r.Kind] += r.Count
		stats.ByStatus[r.Status] += r.Count
	}
	return stats, nil
}

func toExtractionRecord(invoice *models.Invoice, lines []models.InvoiceLineItem) engine.ExtractionRecord {
	items := make([]engine.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, engine.LineItem{
			Date:        l.Date,
			Description: l.Description,
			Timekeeper:  l.Timekeeper,
			Hours:       l.Hours,
			Rate:        l.Rate,
			Amount:      l.Amount,
			Kind:        engine.LineItemKind(l.ItemType),
		})
	}

	var confidence map[string]float64
	if len(invoice.Confidence) > 0 {
		_ = json.Unmarshal(invoice.Confidence, &confidence)
	}

	return engine.ExtractionRecord{
		FirmID:          invoice.FirmID.String(),
		ClientName:      invoice.ClientName,
		MatterNumber:    invoice.MatterNumber,
		InvoiceNumber:   invoice.InvoiceNumber,
		InvoiceDate:     invoice.InvoiceDate,
		LineItems:       items,
		Subtotal:        invoice.Subtotal,
		Taxes:           invoice.Taxes,
		Total:           invoice.Total,
		RetainerApplied: invoice.RetainerApplied,
		AmountDue:       invoice.AmountDue,
		Confidence:      confidence,
	}
}

func toLedgerEntries(entries []models.TimeEntry) []engine.LedgerEntry {
	out := make([]engine.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, engine.LedgerEntry{
			ExternalID:   e.ExternalID,
			FirmID:       e.FirmID.String(),
			MatterNumber: e.MatterNumber,
			Timekeeper:   e.Timekeeper,
			Date:         e.Date,
			Hours:        e.Hours,
			Rate:         e.Rate,
			Amount:       e.Amount,
			Kind:         engine.LedgerKind(e.EntryType),
			Billable:     e.Billable,
			SourceSystem: e.SourceSystem,
			CreatedAt:    e.SourceCreated,
		})
	}
	return out
}
