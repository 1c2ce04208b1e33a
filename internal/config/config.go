package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	CatalogFile string `toml:"catalog_file"`
}

// Store selects and configures the persisted price store.
type Store struct {
	Driver      string `toml:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	BatchSize   int    `toml:"batch_size"`
}

// Marketplace contains configuration for the marketplace search and sales APIs.
type Marketplace struct {
	SearchURL          string `toml:"search_url"`
	SalesURL           string `toml:"sales_url"`
	ProductURL         string `toml:"product_url"`
	ProductLine        string `toml:"product_line"`
	UserAgent          string `toml:"user_agent"`
	PageSize           int    `toml:"page_size"`
	MaxPages           int    `toml:"max_pages"`
	RequestDelayMillis int    `toml:"request_delay_ms"`
	RequestTimeout     int    `toml:"request_timeout"`
	FetchLastSales     bool   `toml:"fetch_last_sales"`
	SalesBatchSize     int    `toml:"sales_batch_size"`
	SalesBatchDelayMs  int    `toml:"sales_batch_delay_ms"`
	SetDelayMillis     int    `toml:"set_delay_ms"`
}

// Matching holds the lookup tables used to derive a card's expected art style.
type Matching struct {
	// VariantStyles maps a positional variant code (p1, p2, ...) to an art style tag.
	VariantStyles map[string]string `toml:"variant_styles"`
	MangaCards    []string          `toml:"manga_cards"`
	WantedCards   []string          `toml:"wanted_cards"`
}

// Set binds a publisher set id to the names the marketplace files it under.
type Set struct {
	ID      string   `toml:"id"`
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
	// Reprint marks sets whose variant naming follows the reprint convention.
	Reprint bool `toml:"reprint"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pricesync.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and catalog locations
//   - Store: SQLite or Postgres price store and write batching
//   - Marketplace: endpoints, pagination, and pacing
//   - Matching: variant style lookup and manga/wanted allowlists
//   - Sets: publisher set id to marketplace alias table
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Marketplace Marketplace `toml:"marketplace"`
	Matching    Matching    `toml:"matching"`
	Sets        []Set       `toml:"sets"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pricesync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares [[sets]] replaces the default table rather than appending to it.
		cfg.Sets = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Sets) == 0 {
			cfg.Sets = defaultSets()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/pricesync/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pricesync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Store.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Store.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	return nil
}

// LockPath returns the path of the lock file that serializes reconciliation runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "pricesync.lock")
}

// SetByID returns the configured set with the given id (case-insensitive).
func (c *Config) SetByID(id string) (Set, bool) {
	id = strings.TrimSpace(id)
	for _, set := range c.Sets {
		if strings.EqualFold(set.ID, id) {
			return set, true
		}
	}
	return Set{}, false
}

// ReprintSets returns the ids of sets flagged as reprint sets.
func (c *Config) ReprintSets() map[string]bool {
	out := make(map[string]bool)
	for _, set := range c.Sets {
		if set.Reprint {
			out[set.ID] = true
		}
	}
	return out
}

// RequestDelay returns the pause enforced between marketplace search requests.
func (m Marketplace) RequestDelay() time.Duration {
	return time.Duration(m.RequestDelayMillis) * time.Millisecond
}

// SalesBatchDelay returns the pause between last-sale batches.
func (m Marketplace) SalesBatchDelay() time.Duration {
	return time.Duration(m.SalesBatchDelayMs) * time.Millisecond
}

// SetDelay returns the pause between consecutive sets.
func (m Marketplace) SetDelay() time.Duration {
	return time.Duration(m.SetDelayMillis) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (m Marketplace) Timeout() time.Duration {
	return time.Duration(m.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
