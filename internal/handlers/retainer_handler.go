package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ryanpate/invoicerecon/internal/repository"
)

type RetainerHandler struct {
	repo *repository.RetainerRepository
}

func NewRetainerHandler(repo *repository.RetainerRepository) *RetainerHandler {
	return &RetainerHandler{repo: repo}
}

// Upsert sets a client's available retainer balance.
func (h *RetainerHandler) Upsert(c *gin.Context) {
	var payload struct {
		FirmID     string  `json:"firm_id"`
		ClientName string  `json:"client_name"`
		Balance    float64 `json:"balance"`
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
	if payload.ClientName == "" || payload.Balance < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client name or balance"})
		return
	}

	bal, err := h.repo.Upsert(firmID, payload.ClientName, decimal.NewFromFloat(payload.Balance))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "retainer balance updated", "retainer": bal})
}
