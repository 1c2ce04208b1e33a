package testsupport

import (
	"context"
	"testing"

	"pricesync/internal/config"
	"pricesync/internal/pricestore"
)

// MustOpenStore opens a pricestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *pricestore.Store {
	t.Helper()

	store, err := pricestore.Open(cfg)
	if err != nil {
		t.Fatalf("pricestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustGetMapping fetches a mapping and fails the test when it is missing.
func MustGetMapping(t testing.TB, store *pricestore.Store, cardID string) *pricestore.Mapping {
	t.Helper()

	m, err := store.GetMapping(context.Background(), cardID)
	if err != nil {
		t.Fatalf("store.GetMapping: %v", err)
	}
	if m == nil {
		t.Fatalf("expected mapping for %s", cardID)
	}
	return m
}
