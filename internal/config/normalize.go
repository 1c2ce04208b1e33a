package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeMarketplace()
	c.normalizeMatching()
	c.normalizeSets()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("PRICESYNC_CATALOG"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CatalogFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CatalogFile) == "" {
		c.Paths.CatalogFile = filepath.Join(c.Paths.DataDir, "cards.json")
	}
	if c.Paths.CatalogFile, err = expandPath(c.Paths.CatalogFile); err != nil {
		return fmt.Errorf("paths.catalog_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = DriverSQLite
	case "pg", "postgresql", "pgx":
		c.Store.Driver = DriverPostgres
	}
	var err error
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
	}
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	c.Store.PostgresDSN = strings.TrimSpace(c.Store.PostgresDSN)
	if c.Store.PostgresDSN == "" {
		if value, ok := os.LookupEnv("PRICESYNC_POSTGRES_DSN"); ok {
			c.Store.PostgresDSN = strings.TrimSpace(value)
		}
	}
	if c.Store.BatchSize <= 0 {
		c.Store.BatchSize = defaultBatchSize
	}
	return nil
}

func (c *Config) normalizeMarketplace() {
	m := &c.Marketplace
	m.SearchURL = strings.TrimSpace(m.SearchURL)
	if m.SearchURL == "" {
		m.SearchURL = defaultSearchURL
	}
	m.SalesURL = strings.TrimRight(strings.TrimSpace(m.SalesURL), "/")
	if m.SalesURL == "" {
		m.SalesURL = defaultSalesURL
	}
	m.ProductURL = strings.TrimRight(strings.TrimSpace(m.ProductURL), "/")
	if m.ProductURL == "" {
		m.ProductURL = defaultProductURL
	}
	m.ProductLine = strings.TrimSpace(m.ProductLine)
	if m.ProductLine == "" {
		m.ProductLine = defaultProductLine
	}
	m.UserAgent = strings.TrimSpace(m.UserAgent)
	if m.UserAgent == "" {
		m.UserAgent = defaultUserAgent
	}
	if m.PageSize <= 0 {
		m.PageSize = defaultPageSize
	}
	if m.MaxPages <= 0 {
		m.MaxPages = defaultMaxPages
	}
	if m.RequestDelayMillis < 0 {
		m.RequestDelayMillis = defaultRequestDelayMillis
	}
	if m.RequestTimeout <= 0 {
		m.RequestTimeout = defaultRequestTimeout
	}
	if m.SalesBatchSize <= 0 {
		m.SalesBatchSize = defaultSalesBatchSize
	}
	if m.SalesBatchDelayMs < 0 {
		m.SalesBatchDelayMs = defaultSalesBatchDelayMs
	}
	if m.SetDelayMillis < 0 {
		m.SetDelayMillis = defaultSetDelayMillis
	}
}

func (c *Config) normalizeMatching() {
	if len(c.Matching.VariantStyles) == 0 {
		c.Matching.VariantStyles = defaultVariantStyles()
	}
	styles := make(map[string]string, len(c.Matching.VariantStyles))
	for code, style := range c.Matching.VariantStyles {
		code = strings.ToLower(strings.TrimSpace(code))
		style = strings.ToLower(strings.TrimSpace(style))
		if code == "" || style == "" {
			continue
		}
		styles[code] = style
	}
	c.Matching.VariantStyles = styles
	c.Matching.MangaCards = normalizeIDs(c.Matching.MangaCards)
	c.Matching.WantedCards = normalizeIDs(c.Matching.WantedCards)
}

func (c *Config) normalizeSets() {
	for i := range c.Sets {
		set := &c.Sets[i]
		set.ID = strings.ToUpper(strings.TrimSpace(set.ID))
		set.Name = strings.TrimSpace(set.Name)
		aliases := make([]string, 0, len(set.Aliases))
		seen := make(map[string]struct{}, len(set.Aliases))
		for _, alias := range set.Aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			if _, ok := seen[alias]; ok {
				continue
			}
			seen[alias] = struct{}{}
			aliases = append(aliases, alias)
		}
		set.Aliases = aliases
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
