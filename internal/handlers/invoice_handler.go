package handlers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ryanpate/invoicerecon/internal/models"
	"github.com/ryanpate/invoicerecon/internal/repository"
)

type InvoiceHandler struct {
	repo *repository.InvoiceRepository
}

func NewInvoiceHandler(repo *repository.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{repo: repo}
}

type lineItemPayload struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Timekeeper  string  `json:"timekeeper"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
}

type createInvoicePayload struct {
	FirmID          string             `json:"firm_id"`
	InvoiceNumber   string             `json:"invoice_number"`
	ClientName      string             `json:"client_name"`
	MatterNumber    string             `json:"matter_number"`
	InvoiceDate     string             `json:"invoice_date"` // "yyyy-mm-dd"
	Subtotal        float64            `json:"subtotal"`
	Taxes           float64            `json:"taxes"`
	Total           float64            `json:"total"`
	RetainerApplied float64            `json:"retainer_applied"`
	AmountDue       float64            `json:"amount_due"`
	Confidence      map[string]float64 `json:"confidence"`
	LineItems       []lineItemPayload  `json:"line_items"`
}

// Create stores an extraction record delivered by the parsing collaborator.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var payload createInvoicePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	firmID, err := uuid.Parse(payload.FirmID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid firm ID"})
		return
	}
	if payload.ClientName == "" || payload.MatterNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client name and matter number required"})
		return
	}

	invoiceDate, err := time.Parse("2006-01-02", payload.InvoiceDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice date, expected yyyy-mm-dd"})
		return
	}

	invoiceNumber := payload.InvoiceNumber
	if invoiceNumber == "" {
		invoiceNumber = uuid.New().String()
	}

	confidence, _ := json.Marshal(payload.Confidence)

	invoice := &models.Invoice{
		ID:              uuid.New(),
		FirmID:          firmID,
		InvoiceNumber:   invoiceNumber,
		ClientName:      payload.ClientName,
		MatterNumber:    payload.MatterNumber,
		InvoiceDate:     invoiceDate,
		Subtotal:        decimal.NewFromFloat(payload.Subtotal),
		Taxes:           decimal.NewFromFloat(payload.Taxes),
		Total:           decimal.NewFromFloat(payload.Total),
		RetainerApplied: decimal.NewFromFloat(payload.RetainerApplied),
		AmountDue:       decimal.NewFromFloat(payload.AmountDue),
		Status:          "extracted",
		Confidence:      confidence,
		CreatedAt:       time.Now(),
	}
	if err := h.repo.Create(invoice); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for i, item := range payload.LineItems {
		var date time.Time
		if item.Date != "" {
			date, err = time.Parse("2006-01-02", item.Date)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line item date"})
				return
			}
		}
		itemType := item.Type
		if itemType == "" {
			itemType = "time"
		}
		if err := h.repo.CreateLineItem(&models.InvoiceLineItem{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			LineNumber:  i,
			Date:        date,
			Description: item.Description,
			Timekeeper:  item.Timekeeper,
			Hours:       decimal.NewFromFloat(item.Hours),
			Rate:        decimal.NewFromFloat(item.Rate),
			Amount:      decimal.NewFromFloat(item.Amount),
			ItemType:    itemType,
			Confidence:  item.Confidence,
			CreatedAt:   time.Now(),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "invoice created", "invoice": invoice})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	invoice, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}
	items, err := h.repo.LineItems(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice, "line_items": items})
}

// UploadLineItems accepts a CSV of line items for an existing invoice:
// date,description,timekeeper,hours,rate,amount,type
func (h *InvoiceHandler) UploadLineItems(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}
	if _, err := h.repo.GetByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	log.Println("Received line item file:", header.Filename, "size:", header.Size)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	_, _ = reader.Read()

	inserted := 0
	rowNum := 0

	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("line item row %d: %v", rowNum, err)
			continue
		}
		if len(record) < 6 || strings.Join(record, "") == "" {
			continue
		}

		var date time.Time
		dateStr := strings.TrimSpace(record[0])
		if dateStr != "" {
			date, err = time.Parse("2006-01-02", dateStr)
			if err != nil {
				log.Printf("line item row %d: invalid date %q", rowNum, dateStr)
				continue
			}
		}

		hours, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		if err != nil {
			continue
		}

		itemType := "time"
		if len(record) > 6 && strings.TrimSpace(record[6]) != "" {
			itemType = strings.TrimSpace(record[6])
		}

		if err := h.repo.CreateLineItem(&models.InvoiceLineItem{
			ID:          uuid.New(),
			InvoiceID:   id,
			LineNumber:  inserted,
			Date:        date,
			Description: strings.TrimSpace(record[1]),
			Timekeeper:  strings.TrimSpace(record[2]),
			Hours:       decimal.NewFromFloat(hours),
			Rate:        decimal.NewFromFloat(rate),
			Amount:      decimal.NewFromFloat(amount),
			ItemType:    itemType,
			CreatedAt:   time.Now(),
		}); err != nil {
			log.Printf("line item row %d: %v", rowNum, err)
			continue
		}
		inserted++
	}

	c.JSON(http.StatusOK, gin.H{
		"file":       header.Filename,
		"linesAdded": inserted,
	})
}
