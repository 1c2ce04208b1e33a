package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pricesync/internal/catalog"
	"pricesync/internal/config"
	"pricesync/internal/pricestore"
	"pricesync/internal/runlock"
	"pricesync/internal/testsupport"
)

type cliTestEnv struct {
	market     *testsupport.FakeMarketplace
	baseDir    string
	configPath string
	catalog    string
	dbPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PRICESYNC_CATALOG", "")
	t.Setenv("PRICESYNC_POSTGRES_DSN", "")

	base := t.TempDir()
	env := &cliTestEnv{
		market:     testsupport.NewFakeMarketplace(t),
		baseDir:    base,
		configPath: filepath.Join(base, "pricesync.toml"),
		catalog:    filepath.Join(base, "data", "cards.json"),
		dbPath:     filepath.Join(base, "data", "prices.db"),
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
catalog_file = %q

[store]
driver = "sqlite"
sqlite_path = %q

[marketplace]
search_url = %q
sales_url = %q
product_url = %q
request_delay_ms = 0
sales_batch_delay_ms = 0
set_delay_ms = 0
fetch_last_sales = false

[logging]
level = "warn"

[[sets]]
id = "OP13"
name = "Carrying On His Will"
aliases = ["carrying-on-his-will"]

[[sets]]
id = "PRB01"
aliases = ["premium-booster-the-best"]
reprint = true
`,
		filepath.Join(env.baseDir, "data"),
		filepath.Join(env.baseDir, "logs"),
		env.catalog,
		env.dbPath,
		env.market.URL()+testsupport.SearchPath,
		env.market.URL()+testsupport.SalesPath,
		env.market.URL()+"/product",
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func openStore(t *testing.T, env *cliTestEnv) *pricestore.Store {
	t.Helper()
	store, err := pricestore.OpenSQLite(env.dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestCLISyncHistoryAndRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	env.market.AddProducts("carrying-on-his-will",
		testsupport.FakeProduct{ID: 1001, Name: "Monkey.D.Luffy (Parallel)", Number: "OP13-118", Market: "45.00"},
		testsupport.FakeProduct{ID: 1000, Name: "Monkey.D.Luffy", Number: "OP13-118", Market: "2.50", Listings: 30},
	)
	testsupport.WriteCatalog(t, env.catalog, []catalog.Card{
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
		testsupport.Card("OP13-119", "Nobody"),
	})

	out, _, err := runCLI(t, []string{"--json", "sync"}, env.configPath)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	var summary jsonSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Phase != "done" || summary.Processed != 2 || summary.Found != 1 || summary.NotFound != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id in summary")
	}

	out, _, err = runCLI(t, []string{"history", "1000"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	requireContains(t, out, "2.50")
	requireContains(t, out, "30")

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	requireContains(t, out, summary.RunID)
	requireContains(t, out, "done")

	store := openStore(t, env)
	mapping, err := store.GetMapping(context.Background(), "OP13-118")
	if err != nil || mapping == nil {
		t.Fatalf("expected mapping for OP13-118, got %v err=%v", mapping, err)
	}
	if mapping.ProductID != 1000 {
		t.Fatalf("expected standard product, got %d", mapping.ProductID)
	}
}

func TestCLISyncPlainSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	env.market.AddProducts("carrying-on-his-will",
		testsupport.FakeProduct{ID: 1000, Name: "Monkey.D.Luffy", Number: "OP13-118", Market: "2.50"},
	)
	testsupport.WriteCatalog(t, env.catalog, []catalog.Card{
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
		testsupport.Card("EB01-001", "Kouzuki Oden"),
	})

	out, _, err := runCLI(t, []string{"sync", "--set", "op13"}, env.configPath)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	requireContains(t, out, "Phase: done")
	requireContains(t, out, "Found: 1")
	requireContains(t, out, "set OP13: 1 cards")
}

func TestCLISyncMissingCatalogFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"sync", "--catalog", filepath.Join(env.baseDir, "nope.json")}, env.configPath)
	if !errors.Is(err, catalog.ErrCatalogMissing) {
		t.Fatalf("expected missing catalog error, got %v", err)
	}
}

func TestCLISyncUnknownSetFails(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteCatalog(t, env.catalog, []catalog.Card{testsupport.Card("OP13-118", "Monkey.D.Luffy")})

	if _, _, err := runCLI(t, []string{"sync", "--set", "ZZ99"}, env.configPath); err == nil {
		t.Fatal("expected unknown set to fail")
	}
}

func TestCLISyncLockedLeavesStoreUntouched(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteCatalog(t, env.catalog, []catalog.Card{
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
	})
	lock, err := runlock.Acquire(filepath.Join(env.baseDir, "data", "pricesync.lock"))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	_, _, err = runCLI(t, []string{"sync"}, env.configPath)
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, statErr := os.Stat(env.dbPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected store not to be created while locked, stat err=%v", statErr)
	}
	if len(env.market.Searches()) != 0 {
		t.Fatalf("expected no marketplace requests, got %d", len(env.market.Searches()))
	}
}

func TestCLIPrices(t *testing.T) {
	env := setupCLITestEnv(t)
	env.market.AddProducts("carrying-on-his-will",
		testsupport.FakeProduct{ID: 1000, Name: "Monkey.D.Luffy", Number: "OP13-118", Market: "2.50", Listings: 30},
		testsupport.FakeProduct{ID: 1002, Name: "Roronoa Zoro", Number: "OP13-119", Market: "0.75"},
	)
	testsupport.WriteCatalog(t, env.catalog, []catalog.Card{
		testsupport.Card("OP13-118", "Monkey.D.Luffy"),
		testsupport.Card("OP13-119", "Roronoa Zoro"),
	})
	if _, _, err := runCLI(t, []string{"sync"}, env.configPath); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"prices"}, env.configPath)
	if err != nil {
		t.Fatalf("prices failed: %v", err)
	}
	requireContains(t, out, "OP13-118")
	requireContains(t, out, "OP13-119")
	requireContains(t, out, "2.50")

	out, _, err = runCLI(t, []string{"--json", "prices", "--card", "op13-119"}, env.configPath)
	if err != nil {
		t.Fatalf("prices --json failed: %v", err)
	}
	var decoded struct {
		Prices []jsonMapping `json:"prices"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode prices: %v\n%s", err, out)
	}
	if len(decoded.Prices) != 1 || decoded.Prices[0].CardID != "OP13-119" || decoded.Prices[0].ProductID != 1002 {
		t.Fatalf("unexpected prices %+v", decoded.Prices)
	}
	if got := decoded.Prices[0].Prices.Market; got == nil || *got != "0.75" {
		t.Fatalf("expected market 0.75, got %v", got)
	}
}

func TestCLIListSets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sync", "--list-sets"}, env.configPath)
	if err != nil {
		t.Fatalf("list-sets failed: %v", err)
	}
	requireContains(t, out, "OP13")
	requireContains(t, out, "carrying-on-his-will")
	requireContains(t, out, "premium-booster-the-best")
	if len(env.market.Searches()) != 0 {
		t.Fatalf("list-sets should not contact the marketplace, got %v", env.market.Searches())
	}

	out, _, err = runCLI(t, []string{"--json", "sync", "--list-sets"}, env.configPath)
	if err != nil {
		t.Fatalf("list-sets json failed: %v", err)
	}
	var payload struct {
		Sets []struct {
			ID      string   `json:"id"`
			Aliases []string `json:"aliases"`
			Reprint bool     `json:"reprint"`
		} `json:"sets"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode sets: %v", err)
	}
	if len(payload.Sets) != 2 || payload.Sets[1].ID != "PRB01" || !payload.Sets[1].Reprint {
		t.Fatalf("unexpected sets %+v", payload.Sets)
	}
}

func TestCLIOverrideLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"override", "set", "OP13-118_p1", "539501", "--name", "Luffy (Alternate Art)"}, env.configPath)
	if err != nil {
		t.Fatalf("override set failed: %v", err)
	}
	requireContains(t, out, "pinned to product 539501")

	out, _, err = runCLI(t, []string{"override", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("override list failed: %v", err)
	}
	requireContains(t, out, "OP13-118_p1")
	requireContains(t, out, "Luffy (Alternate Art)")

	out, _, err = runCLI(t, []string{"override", "revert", "OP13-118_p1"}, env.configPath)
	if err != nil {
		t.Fatalf("override revert failed: %v", err)
	}
	requireContains(t, out, "removed")

	out, _, err = runCLI(t, []string{"override", "revert", "OP13-118_p1"}, env.configPath)
	if err != nil {
		t.Fatalf("second revert failed: %v", err)
	}
	requireContains(t, out, "no manual override")

	if _, _, err := runCLI(t, []string{"override", "set", "OP13-118_p1", "abc"}, env.configPath); err == nil {
		t.Fatal("expected invalid product id to fail")
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PRICESYNC_CATALOG", "")
	target := filepath.Join(t.TempDir(), "nested", "pricesync.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init without --overwrite to fail")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Store: "+config.DriverSQLite)
}
