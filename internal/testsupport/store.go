package testsupport

import (
	"context"
	"testing"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/queue"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewQueueItem creates a received queue item for tests using the provided
// store.
func NewQueueItem(t testing.TB, store *queue.Store, raw string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), "test-"+raw, raw, "text", 0)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
