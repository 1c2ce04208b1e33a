package reconcile

import (
	"context"
	"time"

	"pricesync/internal/catalog"
	"pricesync/internal/marketplace"
	"pricesync/internal/matching"
	"pricesync/internal/pricestore"
	"pricesync/internal/pricesync"
)

// Phase is the driver's position in a run.
type Phase string

// Run phases.
const (
	PhaseIdle        Phase = "idle"
	PhaseLoadCatalog Phase = "load_catalog"
	PhaseSets        Phase = "sets"
	PhaseLastSales   Phase = "last_sales"
	PhaseDone        Phase = "done"
	PhaseAborted     Phase = "aborted"
)

// Filter narrows a run to one set and/or cards whose id contains a substring.
type Filter struct {
	SetID         string
	CardSubstring string
}

// Fetcher is the marketplace surface the driver uses.
type Fetcher interface {
	FetchCandidates(ctx context.Context, aliases []string) ([]marketplace.Product, error)
	FetchLastSales(ctx context.Context, productIDs []int64) map[int64]marketplace.Sale
	ProductURL(p marketplace.Product) string
}

// Matcher selects a product for a card.
type Matcher interface {
	Match(card catalog.Card, candidates []marketplace.Product, overrides map[string]int64) (matching.Result, matching.Trace)
}

// Writer persists staged rows.
type Writer interface {
	UpsertMappings(ctx context.Context, rows []pricestore.Mapping) (pricesync.Stats, error)
	UpsertHistory(ctx context.Context, rows []pricestore.Snapshot) (pricesync.Stats, error)
	ApplyLastSales(ctx context.Context, sales []pricestore.LastSale) (pricesync.Stats, error)
}

// Store provides overrides and run records.
type Store interface {
	LoadConfirmed(ctx context.Context) (map[string]int64, error)
	StartRun(ctx context.Context, run pricestore.Run) error
	FinishRun(ctx context.Context, run pricestore.Run) error
}

// CatalogLoader reads the card catalog.
type CatalogLoader func() (*catalog.Catalog, error)

// SetSummary reports the outcome of one set.
type SetSummary struct {
	SetID      string
	Cards      int
	Candidates int
	Found      int
	NotFound   int
	Skipped    bool
	Reason     string
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID            string
	Phase            Phase
	Processed        int
	Found            int
	NotFound         int
	ManualPreserved  int
	ManualOrphaned   int
	// ManualUnverified counts overrides whose product was absent from a set
	// whose fetch failed part way; their stored rows are left untouched.
	ManualUnverified int
	SetsProcessed    int
	SetsSkipped      int
	AliasFailures    int
	WriteFailures    int
	LastSalesApplied int
	Elapsed          time.Duration
	Sets             []SetSummary
}
