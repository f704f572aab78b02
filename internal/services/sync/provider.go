package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// RemoteMatter is a matter/case as returned by a practice management API.
type RemoteMatter struct {
	ExternalID    string
	DisplayNumber string
	Description   string
	ClientName    string
	Status        string
	PracticeArea  string
	BillingMethod string
}

// RemoteEntry is one time or expense record from the source system.
type RemoteEntry struct {
	ExternalID   string
	MatterRef    string
	Date         time.Time
	Description  string
	Timekeeper   string
	Hours        decimal.Decimal
	Rate         decimal.Decimal
	Amount       decimal.Decimal
	EntryType    string
	Billable     bool
	Billed       bool
	CreatedAt    time.Time
}

// Client is implemented per provider. Implementations handle pagination and
// token refresh internally; callers see complete result sets.
type Client interface {
	Provider() string
	FetchMatters() ([]RemoteMatter, error)
	FetchEntries(start, end time.Time) ([]RemoteEntry, error)
}
