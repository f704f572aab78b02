package jobs

import (
	"log"

	"github.com/robfig/cron/v3"

	syncsvc "github.com/ryanpate/invoicerecon/internal/services/sync"
)

// StartNightlySync schedules a ledger pull for every active integration.
// Runs at 02:00 daily so reconciliations started in the morning see a fresh
// snapshot.
func StartNightlySync(service *syncsvc.Service) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("0 2 * * *", func() {
		log.Println("nightly ledger sync starting")
		service.SyncAll()
		log.Println("nightly ledger sync finished")
	})
	if err != nil {
		log.Printf("cron: failed to schedule nightly sync: %v", err)
		return c
	}

	c.Start()
	return c
}
