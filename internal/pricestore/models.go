package pricestore

import (
	"time"

	"github.com/shopspring/decimal"

	"pricesync/internal/marketplace"
)

// Mapping is the persisted link between a catalog card and a marketplace product.
type Mapping struct {
	CardID         string
	ProductID      int64
	ProductName    string
	ProductURL     string
	Prices         marketplace.Prices
	ManuallyMapped bool
	LastSoldPrice  decimal.NullDecimal
	LastSoldDate   *time.Time
	UpdatedAt      time.Time
}

// Snapshot is one product's prices on one UTC calendar day.
type Snapshot struct {
	ProductID    int64
	RecordedDate time.Time
	Prices       marketplace.Prices
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LastSale carries a last-sold observation for a card's current product.
type LastSale struct {
	CardID    string
	ProductID int64
	Price     decimal.Decimal
	Date      time.Time
}

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunAborted RunStatus = "aborted"
)

// Run is the record of one reconciliation run.
type Run struct {
	ID              string
	Status          RunStatus
	SetFilter       string
	CardFilter      string
	Processed       int
	Found           int
	NotFound        int
	ManualPreserved int
	ManualOrphaned  int
	SetsProcessed   int
	SetsSkipped     int
	AliasFailures   int
	WriteFailures   int
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      *time.Time
}
