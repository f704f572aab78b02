package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ryanpate/invoicerecon/internal/config"
	"github.com/ryanpate/invoicerecon/internal/jobs"
	"github.com/ryanpate/invoicerecon/internal/models"
	"github.com/ryanpate/invoicerecon/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal(err)
	}

	db.AutoMigrate(
		&models.Firm{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.Integration{},
		&models.Matter{},
		&models.SyncBatch{},
		&models.TimeEntry{},
		&models.RetainerBalance{},
		&models.Reconciliation{},
		&models.Discrepancy{},
		&models.DiscrepancyAuditLog{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	services := routes.RegisterRoutes(r, db)

	jobs.StartNightlySync(services.Sync)

	r.Run(config.ServerAddr())
}
