package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ryanpate/invoicerecon/internal/config"
	"github.com/ryanpate/invoicerecon/internal/handlers"
	"github.com/ryanpate/invoicerecon/internal/repository"
	reconsvc "github.com/ryanpate/invoicerecon/internal/services/reconciliation"
	syncsvc "github.com/ryanpate/invoicerecon/internal/services/sync"
)

// Services bundles what main needs to hold on to after registration.
type Services struct {
	Reconciliation *reconsvc.Service
	Sync           *syncsvc.Service
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB) *Services {
	invoiceRepo := repository.NewInvoiceRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)
	retainerRepo := repository.NewRetainerRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)

	reconService := reconsvc.NewService(
		invoiceRepo,
		ledgerRepo,
		reconRepo,
		retainerRepo,
		config.EngineConfig(),
	)
	syncService := syncsvc.NewService(integrationRepo, ledgerRepo)

	invoiceHandler := handlers.NewInvoiceHandler(invoiceRepo)
	reconHandler := handlers.NewReconciliationHandler(reconService)
	syncHandler := handlers.NewSyncHandler(syncService)
	retainerHandler := handlers.NewRetainerHandler(retainerRepo)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Invoice routes
	invoices := api.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.Create)
		invoices.GET("/:id", invoiceHandler.Get)
		invoices.POST("/:id/lines/upload", invoiceHandler.UploadLineItems)
	}

	// Reconciliation routes
	recon := api.Group("/reconciliations")
	recon.POST("", reconHandler.Create)
	recon.GET("/:id", reconHandler.Get)
	recon.GET("/:id/discrepancies", reconHandler.ListDiscrepancies)
	recon.GET("/:id/summary", reconHandler.Summary)
	recon.GET("/:id/report.csv", reconHandler.ReportCSV)

	// Discrepancy resolution
	api.POST("/discrepancies/:id/resolve", reconHandler.ResolveDiscrepancy)

	// Ledger sync
	syncGroup := api.Group("/sync")
	syncGroup.POST("/:provider/run", syncHandler.Run)
	syncGroup.GET("/status", syncHandler.Status)

	// Retainer balances
	api.POST("/retainer", retainerHandler.Upsert)

	return &Services{
		Reconciliation: reconService,
		Sync:           syncService,
	}
}
