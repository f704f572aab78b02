package sync

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ryanpate/invoicerecon/internal/models"
	"github.com/ryanpate/invoicerecon/internal/repository"
)

// ClientFactory builds a provider client for an integration. Swapped out in
// tests for a fake.
type ClientFactory func(integ *models.Integration, save TokenSaver) (Client, error)

type Service struct {
	integrationRepo *repository.IntegrationRepository
	ledgerRepo      *repository.LedgerRepository
	newClient       ClientFactory

	// LookbackDays bounds how far back entries are pulled. Default 90.
	LookbackDays int
}

func NewService(integrationRepo *repository.IntegrationRepository, ledgerRepo *repository.LedgerRepository) *Service {
	return &Service{
		integrationRepo: integrationRepo,
		ledgerRepo:      ledgerRepo,
		newClient:       defaultClientFactory,
		LookbackDays:    90,
	}
}

// SetClientFactory overrides provider client construction.
func (s *Service) SetClientFactory(f ClientFactory) {
	s.newClient = f
}

func defaultClientFactory(integ *models.Integration, save TokenSaver) (Client, error) {
	token := OAuthToken{
		AccessToken:  integ.AccessToken,
		RefreshToken: integ.RefreshToken,
		ExpiresAt:    integ.TokenExpiresAt,
	}

	switch integ.Provider {
	case "clio":
		return NewClioClient(token, os.Getenv("CLIO_CLIENT_ID"), os.Getenv("CLIO_CLIENT_SECRET"), save), nil
	case "mycase":
		return NewMyCaseClient(token, os.Getenv("MYCASE_CLIENT_ID"), os.Getenv("MYCASE_CLIENT_SECRET"), save), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", integ.Provider)
	}
}

// RunSync pulls the full ledger for one integration into a fresh batch.
// Reconciliations never see the batch until it is marked completed.
func (s *Service) RunSync(integ *models.Integration) (*models.SyncBatch, error) {
	save := func(token OAuthToken) error {
		integ.AccessToken = token.AccessToken
		integ.RefreshToken = token.RefreshToken
		integ.TokenExpiresAt = token.ExpiresAt
		integ.Status = "active"
		return s.integrationRepo.Save(integ)
	}

	client, err := s.newClient(integ, save)
	if err != nil {
		return nil, err
	}

	batch := &models.SyncBatch{
		ID:            uuid.New(),
		IntegrationID: integ.ID,
		FirmID:        integ.FirmID,
		Provider:      integ.Provider,
		Status:        "processing",
		StartedAt:     time.Now(),
		CreatedAt:     time.Now(),
	}
	if err := s.ledgerRepo.CreateBatch(batch); err != nil {
		return nil, err
	}

	if err := s.pull(client, integ, batch); err != nil {
		if ferr := s.ledgerRepo.FailBatch(batch.ID, err.Error()); ferr != nil {
			log.Printf("sync: failed to mark batch %s errored: %v", batch.ID, ferr)
		}
		integ.SyncError = err.Error()
		if serr := s.integrationRepo.Save(integ); serr != nil {
			log.Printf("sync: failed to record sync error: %v", serr)
		}
		return batch, err
	}

	now := time.Now()
	integ.LastSyncAt = &now
	integ.SyncError = ""
	if err := s.integrationRepo.Save(integ); err != nil {
		return batch, err
	}

	return batch, nil
}

func (s *Service) pull(client Client, integ *models.Integration, batch *models.SyncBatch) error {
	matters, err := client.FetchMatters()
	if err != nil {
		return fmt.Errorf("fetch matters: %w", err)
	}

	for i := range matters {
		m := matters[i]
		if err := s.ledgerRepo.UpsertMatter(&models.Matter{
			ID:            uuid.New(),
			IntegrationID: integ.ID,
			FirmID:        integ.FirmID,
			ExternalID:    m.ExternalID,
			DisplayNumber: m.DisplayNumber,
			Description:   m.Description,
			ClientName:    m.ClientName,
			Status:        m.Status,
			PracticeArea:  m.PracticeArea,
			BillingMethod: m.BillingMethod,
			SyncedAt:      time.Now(),
		}); err != nil {
			return fmt.Errorf("upsert matter %s: %w", m.ExternalID, err)
		}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -s.LookbackDays)

	entries, err := client.FetchEntries(start, end)
	if err != nil {
		return fmt.Errorf("fetch entries: %w", err)
	}

	for _, e := range entries {
		if err := s.ledgerRepo.CreateEntry(&models.TimeEntry{
			ID:            uuid.New(),
			SyncBatchID:   batch.ID,
			IntegrationID: integ.ID,
			FirmID:        integ.FirmID,
			MatterNumber:  e.MatterRef,
			ExternalID:    e.ExternalID,
			EntryType:     e.EntryType,
			Date:          e.Date,
			Description:   e.Description,
			Timekeeper:    e.Timekeeper,
			Hours:         e.Hours,
			Rate:          e.Rate,
			Amount:        e.Amount,
			Billable:      e.Billable,
			Billed:        e.Billed,
			SourceSystem:  client.Provider(),
			SourceCreated: e.CreatedAt,
			CreatedAt:     time.Now(),
		}); err != nil {
			return fmt.Errorf("create entry %s: %w", e.ExternalID, err)
		}
	}

	log.Printf("sync: %s pulled %d matters, %d entries", client.Provider(), len(matters), len(entries))
	return s.ledgerRepo.CompleteBatch(batch.ID, len(entries), len(matters))
}

// SyncAll runs a sync for every active integration. Used by the nightly job.
func (s *Service) SyncAll() {
	integs, err := s.integrationRepo.Active()
	if err != nil {
		log.Printf("sync: listing integrations: %v", err)
		return
	}

	for i := range integs {
		if _, err := s.RunSync(&integs[i]); err != nil {
			log.Printf("sync: %s for firm %s: %v", integs[i].Provider, integs[i].FirmID, err)
		}
	}
}

func (s *Service) IntegrationFor(firmID uuid.UUID, provider string) (*models.Integration, error) {
	return s.integrationRepo.GetByProvider(firmID, provider)
}

// LatestBatch reports the most recent completed snapshot for a firm.
func (s *Service) LatestBatch(firmID uuid.UUID) (*models.SyncBatch, error) {
	return s.ledgerRepo.LatestCompletedBatch(firmID)
}
