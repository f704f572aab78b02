package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncsvc "github.com/ryanpate/invoicerecon/internal/services/sync"
)

type SyncHandler struct {
	service *syncsvc.Service
}

func NewSyncHandler(s *syncsvc.Service) *SyncHandler {
	return &SyncHandler{service: s}
}

// Run kicks off a ledger pull for one firm and provider in the background.
func (h *SyncHandler) Run(c *gin.Context) {
	provider := c.Param("provider")
	if provider != "clio" && provider != "mycase" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	firmID, err := uuid.Parse(c.Query("firm_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid firm ID"})
		return
	}

	integ, err := h.service.IntegrationFor(firmID, provider)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
		return
	}

	go func() {
		if _, err := h.service.RunSync(integ); err != nil {
			log.Printf("sync %s for firm %s: %v", provider, firmID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "sync started", "provider": provider})
}

// Status reports the latest completed snapshot for a firm.
func (h *SyncHandler) Status(c *gin.Context) {
	firmID, err := uuid.Parse(c.Query("firm_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid firm ID"})
		return
	}

	batch, err := h.service.LatestBatch(firmID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"synced": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":       true,
		"batch_id":     batch.ID.String(),
		"provider":     batch.Provider,
		"entry_count":  batch.EntryCount,
		"matter_count": batch.MatterCount,
		"completed_at": batch.CompletedAt,
	})
}
