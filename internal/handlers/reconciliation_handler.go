package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ryanpate/invoicerecon/internal/services/reconciliation"
	"github.com/ryanpate/invoicerecon/internal/services/report"
)

type ReconciliationHandler struct {
	service *reconciliation.Service
}

func NewReconciliationHandler(s *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// Create starts a reconciliation run in the background and returns its ID.
func (h *ReconciliationHandler) Create(c *gin.Context) {
	var payload struct {
		FirmID      string `json:"firm_id"`
		InvoiceID   string `json:"invoice_id"`
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	firmID, err := uuid.Parse(payload.FirmID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid firm ID"})
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	var periodStart, periodEnd time.Time
	if payload.PeriodStart != "" {
		periodStart, err = time.Parse("2006-01-02", payload.PeriodStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period start"})
			return
		}
		periodEnd, err = time.Parse("2006-01-02", payload.PeriodEnd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period end"})
			return
		}
	}

	rec, err := h.service.CreateRun(firmID, invoiceID, periodStart, periodEnd)
	if err != nil {
		if errors.Is(err, reconciliation.ErrNoLedgerBatch) {
			c.JSON(http.StatusConflict, gin.H{"error": "no completed ledger sync for firm"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if err := h.service.Run(rec.ID); err != nil {
			log.Printf("reconciliation %s: %v", rec.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"reconciliation_id": rec.ID.String(),
		"status":            rec.Status,
	})
}

func (h *ReconciliationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	rec, err := h.service.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reconciliation not found"})
		return
	}

	resp := gin.H{"reconciliation": rec}
	if progress, ok := h.service.GetProgress(id); ok {
		resp["progress"] = gin.H{
			"processed_count": progress.ProcessedCount,
			"total":           progress.Total,
			"status":          progress.Status,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReconciliationHandler) ListDiscrepancies(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	status := c.Query("status")
	cursor := c.Query("cursor")
	limit := 50

	items, nextCursor, hasMore, err := h.service.ListDiscrepancies(id, status, cursor, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, _ := h.service.GetRunStats(id)

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
		"stats":       stats,
	})
}

func (h *ReconciliationHandler) Summary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	rec, err := h.service.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reconciliation not found"})
		return
	}
	discs, err := h.service.ListAllDiscrepancies(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report.BuildSummary(rec, discs))
}

func (h *ReconciliationHandler) ReportCSV(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	rec, err := h.service.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reconciliation not found"})
		return
	}
	discs, err := h.service.ListAllDiscrepancies(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out, err := report.BuildCSV(rec, discs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=reconciliation-"+id.String()+".csv")
	c.Data(http.StatusOK, "text/csv", []byte(out))
}

func (h *ReconciliationHandler) ResolveDiscrepancy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discrepancy ID"})
		return
	}

	var payload struct {
		Status      string `json:"status"`
		Note        string `json:"note"`
		PerformedBy string `json:"performed_by"`
		Version     int    `json:"version"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	disc, err := h.service.Resolve(id, payload.Status, payload.Note, payload.PerformedBy, payload.Version)
	if err != nil {
		switch {
		case errors.Is(err, reconciliation.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "discrepancy was modified concurrently, reload and retry"})
		case errors.Is(err, reconciliation.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be resolved or ignored"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "discrepancy updated", "discrepancy": disc})
}
