package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownStyles = map[string]struct{}{
	"standard": {}, "alternate": {}, "manga": {}, "super": {}, "red-super": {},
	"wanted": {}, "treasure": {}, "full-art": {}, "jolly-roger": {}, "reprint": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateMarketplace(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateSets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path must be set when store.driver is sqlite")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required when store.driver is postgres (or set PRICESYNC_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateMarketplace() error {
	m := c.Marketplace
	if !strings.HasPrefix(m.SearchURL, "http") {
		return fmt.Errorf("marketplace.search_url must be an http(s) url, got %q", m.SearchURL)
	}
	if !strings.HasPrefix(m.SalesURL, "http") {
		return fmt.Errorf("marketplace.sales_url must be an http(s) url, got %q", m.SalesURL)
	}
	if m.PageSize > 250 {
		return errors.New("marketplace.page_size must be at most 250")
	}
	if m.SalesBatchSize > 50 {
		return errors.New("marketplace.sales_batch_size must be at most 50")
	}
	return nil
}

func (c *Config) validateMatching() error {
	for code, style := range c.Matching.VariantStyles {
		if _, ok := knownStyles[style]; !ok {
			return fmt.Errorf("matching.variant_styles.%s: unknown art style %q", code, style)
		}
	}
	return nil
}

func (c *Config) validateSets() error {
	seen := make(map[string]struct{}, len(c.Sets))
	for i, set := range c.Sets {
		if set.ID == "" {
			return fmt.Errorf("sets[%d].id must be set", i)
		}
		if _, ok := seen[set.ID]; ok {
			return fmt.Errorf("sets: duplicate id %q", set.ID)
		}
		seen[set.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
