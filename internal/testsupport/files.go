package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pricesync/internal/catalog"
)

// WriteCatalog writes cards as a catalog JSON array to path.
func WriteCatalog(t testing.TB, path string, cards []catalog.Card) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Card builds a catalog card from its printing id.
func Card(id, name string) catalog.Card {
	return catalog.NewCard(id, name)
}
