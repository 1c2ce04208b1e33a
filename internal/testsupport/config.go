package testsupport

import (
	"path/filepath"
	"testing"

	"pricesync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Marketplace pacing is disabled so tests run without waits.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogFile = filepath.Join(base, "data", "cards.json")
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.SQLitePath = filepath.Join(base, "data", "prices.db")
	cfgVal.Marketplace.RequestDelayMillis = 0
	cfgVal.Marketplace.SalesBatchDelayMs = 0
	cfgVal.Marketplace.SetDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMarketplaceURL points every marketplace endpoint at baseURL.
func WithMarketplaceURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.SearchURL = baseURL + SearchPath
		b.cfg.Marketplace.SalesURL = baseURL + SalesPath
		b.cfg.Marketplace.ProductURL = baseURL + "/product"
	}
}

// WithSets replaces the configured set table.
func WithSets(sets ...config.Set) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sets = sets
	}
}

// WithPageSize overrides the marketplace page size.
func WithPageSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.PageSize = size
	}
}

// WithoutLastSales disables the last-sale phase.
func WithoutLastSales() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Marketplace.FetchLastSales = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
