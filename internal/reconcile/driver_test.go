package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pricesync/internal/catalog"
	"pricesync/internal/config"
	"pricesync/internal/pricestore"
	"pricesync/internal/reconcile"
	"pricesync/internal/runlock"
	"pricesync/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	market *testsupport.FakeMarketplace
	store  *pricestore.Store
	driver *reconcile.Driver
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	market := testsupport.NewFakeMarketplace(t)
	base := []testsupport.ConfigOption{
		testsupport.WithMarketplaceURL(market.URL()),
		testsupport.WithSets(
			config.Set{ID: "OP13", Aliases: []string{"carrying-on-his-will"}},
			config.Set{ID: "OP06", Aliases: []string{"wings-of-the-captain"}},
			config.Set{ID: "EB01"},
		),
	}
	cfg := testsupport.NewConfig(t, append(base, opts...)...)
	store := testsupport.MustOpenStore(t, cfg)
	driver, err := reconcile.NewFromConfig(cfg, store, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	return &fixture{cfg: cfg, market: market, store: store, driver: driver}
}

func (f *fixture) writeCatalog(t *testing.T, cards ...catalog.Card) {
	t.Helper()
	testsupport.WriteCatalog(t, f.cfg.Paths.CatalogFile, cards)
}

func (f *fixture) seedMarket() {
	f.market.AddProducts("carrying-on-his-will",
		testsupport.FakeProduct{ID: 1001, Name: "Monkey.D.Luffy (Parallel)", Number: "OP13-118", Market: "45.00", Listings: 4},
		testsupport.FakeProduct{ID: 1000, Name: "Monkey.D.Luffy", Number: "OP13-118", Market: "2.50", Lowest: "2.00", Listings: 30},
		testsupport.FakeProduct{ID: 1002, Name: "Monkey.D.Luffy (Super Alternate Art)", Number: "OP13-118", Market: "300.00", Listings: 1},
	)
	f.market.AddProducts("wings-of-the-captain",
		testsupport.FakeProduct{ID: 2000, Name: "Kouzuki Hiyori", Number: "OP06-106", Market: "0.25"},
	)
}

func TestRunMatchesAndPersists(t *testing.T) {
	f := newFixture(t)
	f.seedMarket()
	f.market.SetSale(1000, "2.75", time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC))
	f.writeCatalog(t,
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
		testsupport.Card("OP13-118_p4", "Monkey.D.Luffy"),
		testsupport.Card("OP13-001", "Nobody"),
		testsupport.Card("OP06-106_p2", "Kouzuki Hiyori"),
		testsupport.Card("EB01-001", "Kouzuki Oden"),
	)
	ctx := context.Background()
	if err := f.store.ConfirmOverride(ctx, "OP06-106_p2", 539501, "Kouzuki Hiyori (Manga)"); err != nil {
		t.Fatalf("ConfirmOverride failed: %v", err)
	}

	summary, err := f.driver.Run(ctx, reconcile.Filter{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Phase != reconcile.PhaseDone {
		t.Fatalf("unexpected phase %s", summary.Phase)
	}
	if summary.Processed != 4 || summary.Found != 2 || summary.NotFound != 1 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.ManualPreserved != 1 || summary.ManualOrphaned != 1 {
		t.Fatalf("unexpected manual counts %+v", summary)
	}
	if summary.SetsProcessed != 2 || summary.SetsSkipped != 1 {
		t.Fatalf("unexpected set counts %+v", summary)
	}

	standard := testsupport.MustGetMapping(t, f.store, "OP13-118")
	if standard.ProductID != 1000 || standard.ManuallyMapped {
		t.Fatalf("expected standard product for OP13-118, got %#v", standard)
	}
	if standard.ProductURL != f.market.URL()+"/product/1000/monkey-d-luffy" {
		t.Fatalf("unexpected url %q", standard.ProductURL)
	}
	if !standard.LastSoldPrice.Valid || standard.LastSoldPrice.Decimal.String() != "2.75" {
		t.Fatalf("expected last sale applied, got %v", standard.LastSoldPrice)
	}
	if summary.LastSalesApplied != 1 {
		t.Fatalf("expected one last sale applied, got %d", summary.LastSalesApplied)
	}

	wanted := testsupport.MustGetMapping(t, f.store, "OP13-118_p4")
	if wanted.ProductID != 1002 {
		t.Fatalf("expected super fallback for wanted card, got %d", wanted.ProductID)
	}

	orphan := testsupport.MustGetMapping(t, f.store, "OP06-106_p2")
	if orphan.ProductID != 539501 || !orphan.ManuallyMapped || orphan.Prices.Market.Valid {
		t.Fatalf("expected orphaned override preserved with cleared prices, got %#v", orphan)
	}
	if orphan.ProductName != "Kouzuki Hiyori (Manga)" {
		t.Fatalf("expected override name kept, got %q", orphan.ProductName)
	}

	if m, err := f.store.GetMapping(ctx, "OP13-001"); err != nil || m != nil {
		t.Fatalf("expected unmatched card not written, got %#v (err %v)", m, err)
	}

	history, err := f.store.History(ctx, 1000, 5)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one snapshot, got %d (err %v)", len(history), err)
	}

	run, err := f.store.GetRun(ctx, summary.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != pricestore.RunDone || run.Processed != 4 || run.ManualOrphaned != 1 {
		t.Fatalf("unexpected run record %#v", run)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, testsupport.WithoutLastSales())
	f.seedMarket()
	f.writeCatalog(t, testsupport.Card("OP13-118", "Monkey.D.Luffy"), testsupport.Card("OP13-118_p1", "Monkey.D.Luffy"))
	ctx := context.Background()

	if _, err := f.driver.Run(ctx, reconcile.Filter{}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	first, err := f.store.ListMappings(ctx)
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	if _, err := f.driver.Run(ctx, reconcile.Filter{}); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	second, err := f.store.ListMappings(ctx)
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected mapping counts %d/%d", len(first), len(second))
	}
	for i := range first {
		if first[i].CardID != second[i].CardID || first[i].ProductID != second[i].ProductID {
			t.Fatalf("mapping changed between runs: %#v vs %#v", first[i], second[i])
		}
	}
	history, err := f.store.History(ctx, 1000, 5)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one snapshot per day, got %d (err %v)", len(history), err)
	}
}

func TestRunKeepsFirstPageWhenLaterPageThrottled(t *testing.T) {
	f := newFixture(t,
		testsupport.WithPageSize(2),
		testsupport.WithoutLastSales(),
		testsupport.WithSets(config.Set{ID: "PRB01", Aliases: []string{"premium-booster-the-best"}, Reprint: true}),
	)
	f.market.AddProducts("premium-booster-the-best",
		testsupport.FakeProduct{ID: 1, Name: "Roronoa Zoro", Number: "PRB01-001"},
		testsupport.FakeProduct{ID: 2, Name: "Nami", Number: "PRB01-002"},
		testsupport.FakeProduct{ID: 3, Name: "Sanji", Number: "PRB01-003"},
	)
	f.market.FailPage("premium-booster-the-best", 1)
	f.writeCatalog(t,
		testsupport.Card("PRB01-001", "Roronoa Zoro"),
		testsupport.Card("PRB01-002", "Nami"),
		testsupport.Card("PRB01-003", "Sanji"),
	)

	summary, err := f.driver.Run(context.Background(), reconcile.Filter{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Found != 2 || summary.NotFound != 1 || summary.AliasFailures != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	testsupport.MustGetMapping(t, f.store, "PRB01-002")
}

func TestRunKeepsOverrideWhenFetchIsPartial(t *testing.T) {
	f := newFixture(t,
		testsupport.WithPageSize(1),
		testsupport.WithoutLastSales(),
		testsupport.WithSets(config.Set{ID: "OP06", Aliases: []string{"wings-of-the-captain"}}),
	)
	f.market.AddProducts("wings-of-the-captain",
		testsupport.FakeProduct{ID: 2000, Name: "Kouzuki Hiyori", Number: "OP06-106", Market: "0.25"},
		testsupport.FakeProduct{ID: 539501, Name: "Kouzuki Hiyori (Manga)", Number: "OP06-106", Market: "120.00", Listings: 2},
	)
	f.writeCatalog(t, testsupport.Card("OP06-106_p2", "Kouzuki Hiyori"))
	ctx := context.Background()
	if err := f.store.ConfirmOverride(ctx, "OP06-106_p2", 539501, "Kouzuki Hiyori (Manga)"); err != nil {
		t.Fatalf("ConfirmOverride failed: %v", err)
	}

	if _, err := f.driver.Run(ctx, reconcile.Filter{}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before := testsupport.MustGetMapping(t, f.store, "OP06-106_p2")
	if !before.Prices.Market.Valid || before.Prices.Market.Decimal.StringFixed(2) != "120.00" {
		t.Fatalf("expected override prices stored, got %#v", before.Prices)
	}

	f.market.FailPage("wings-of-the-captain", 1)
	summary, err := f.driver.Run(ctx, reconcile.Filter{})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if summary.AliasFailures != 1 {
		t.Fatalf("expected one alias failure, got %+v", summary)
	}
	if summary.ManualOrphaned != 0 || summary.ManualUnverified != 1 || summary.ManualPreserved != 1 {
		t.Fatalf("unexpected manual counts %+v", summary)
	}
	after := testsupport.MustGetMapping(t, f.store, "OP06-106_p2")
	if after.ProductID != 539501 || !after.ManuallyMapped {
		t.Fatalf("expected override kept, got %#v", after)
	}
	if !after.Prices.Market.Valid || !after.Prices.Market.Decimal.Equal(before.Prices.Market.Decimal) {
		t.Fatalf("expected stored prices unchanged, got %#v", after.Prices)
	}
	if after.ProductURL != before.ProductURL || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected row untouched, before %#v after %#v", before, after)
	}
}

func TestRunOrphanKeepsStoredURL(t *testing.T) {
	f := newFixture(t,
		testsupport.WithoutLastSales(),
		testsupport.WithSets(config.Set{ID: "OP06", Aliases: []string{"wings-of-the-captain"}}),
	)
	f.market.AddProducts("wings-of-the-captain",
		testsupport.FakeProduct{ID: 2000, Name: "Kouzuki Hiyori", Number: "OP06-106", Market: "0.25"},
	)
	f.writeCatalog(t, testsupport.Card("OP06-106_p2", "Kouzuki Hiyori"))
	ctx := context.Background()
	if err := f.store.ConfirmOverride(ctx, "OP06-106_p2", 539501, "Kouzuki Hiyori (Manga)"); err != nil {
		t.Fatalf("ConfirmOverride failed: %v", err)
	}
	stored := "https://market.example/product/539501/kouzuki-hiyori-manga"
	if err := f.store.UpsertMappings(ctx, []pricestore.Mapping{{
		CardID:         "OP06-106_p2",
		ProductID:      539501,
		ProductURL:     stored,
		ManuallyMapped: true,
		UpdatedAt:      time.Now().UTC(),
	}}); err != nil {
		t.Fatalf("UpsertMappings failed: %v", err)
	}

	summary, err := f.driver.Run(ctx, reconcile.Filter{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.ManualOrphaned != 1 || summary.ManualUnverified != 0 {
		t.Fatalf("unexpected manual counts %+v", summary)
	}
	orphan := testsupport.MustGetMapping(t, f.store, "OP06-106_p2")
	if orphan.ProductURL != stored {
		t.Fatalf("expected stored url kept, got %q", orphan.ProductURL)
	}
	if orphan.ProductName != "Kouzuki Hiyori (Manga)" {
		t.Fatalf("expected stored name kept, got %q", orphan.ProductName)
	}
}

func TestRunFilters(t *testing.T) {
	f := newFixture(t, testsupport.WithoutLastSales())
	f.seedMarket()
	f.writeCatalog(t,
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
		testsupport.Card("OP13-118_p4", "Monkey.D.Luffy"),
		testsupport.Card("OP06-106", "Kouzuki Hiyori"),
	)

	summary, err := f.driver.Run(context.Background(), reconcile.Filter{SetID: "op13", CardSubstring: "_p4"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 || summary.SetsProcessed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, alias := range f.market.Searches() {
		if alias != "carrying-on-his-will" {
			t.Fatalf("unexpected search for alias %q", alias)
		}
	}

	if _, err := f.driver.Run(context.Background(), reconcile.Filter{SetID: "ZZ99"}); err == nil {
		t.Fatal("expected error for unknown set")
	}
}

func TestRunAbortsWhenCatalogMissing(t *testing.T) {
	f := newFixture(t)
	summary, err := f.driver.Run(context.Background(), reconcile.Filter{})
	if !errors.Is(err, catalog.ErrCatalogMissing) {
		t.Fatalf("expected ErrCatalogMissing, got %v", err)
	}
	if summary == nil || summary.Phase != reconcile.PhaseAborted {
		t.Fatalf("expected aborted summary, got %+v", summary)
	}
	runs, err := f.store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Status != pricestore.RunAborted {
		t.Fatalf("expected aborted run record, got %#v (err %v)", runs, err)
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	f := newFixture(t)
	lock, err := runlock.Acquire(f.cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	if _, err := f.driver.Run(context.Background(), reconcile.Filter{}); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	f := newFixture(t)
	f.seedMarket()
	f.writeCatalog(t, testsupport.Card("OP13-118", "Monkey.D.Luffy"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := f.driver.Run(ctx, reconcile.Filter{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Phase != reconcile.PhaseAborted || summary.Processed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
