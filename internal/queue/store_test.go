package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewItemAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, "q-1", "Inception 2010", "text", 0)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected assigned row id")
	}
	if item.Status != StatusReceived {
		t.Fatalf("status = %q, want %q", item.Status, StatusReceived)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	byQuery, err := store.GetByQueryID(ctx, "q-1")
	if err != nil {
		t.Fatalf("get by query id: %v", err)
	}
	if byQuery == nil || byQuery.ID != item.ID {
		t.Fatalf("lookup mismatch: %+v", byQuery)
	}

	missing, err := store.GetByQueryID(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing item, got %+v", missing)
	}
}

func TestNewItemRejectsDuplicateQueryID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.NewItem(ctx, "q-dup", "The Thing", "text", 1982); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := store.NewItem(ctx, "q-dup", "The Thing", "text", 1982); err == nil {
		t.Fatal("expected duplicate query id to fail")
	}
}

func TestUpdatePersistsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, "q-2", "Heat (1995)", "caption", 0)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	item.NormalizedTitle = "heat"
	item.NormalizedYear = 1995
	item.MovieID = 949
	item.MovieTitle = "Heat"
	item.MovieVersion = "abc123"
	item.Status = StatusResolved
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MovieID != 949 || got.NormalizedTitle != "heat" || got.Status != StatusResolved {
		t.Fatalf("unexpected persisted item: %+v", got)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, "q-3", "Alien", "text", 0)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	item.Status = Status("bogus")
	if err := store.Update(ctx, item); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, _ := store.NewItem(ctx, "q-a", "a", "text", 0)
	second, _ := store.NewItem(ctx, "q-b", "b", "text", 0)
	second.Status = StatusFailed
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("update: %v", err)
	}

	failed, err := store.List(ctx, StatusFailed)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != second.ID {
		t.Fatalf("unexpected failed listing: %+v", failed)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
	if all[0].ID != first.ID && all[0].ID != second.ID {
		t.Fatalf("unexpected ordering: %+v", all)
	}
}

func TestResetInFlight(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	states := map[string]Status{
		"q-res":  StatusResolving,
		"q-ren":  StatusRendering,
		"q-sel":  StatusAwaitingSelection,
		"q-done": StatusDone,
	}
	for queryID, status := range states {
		item, err := store.NewItem(ctx, queryID, "raw", "text", 0)
		if err != nil {
			t.Fatalf("new item %s: %v", queryID, err)
		}
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("update %s: %v", queryID, err)
		}
	}

	reset, err := store.ResetInFlight(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != 3 {
		t.Fatalf("reset = %d, want 3", reset)
	}

	done, err := store.GetByQueryID(ctx, "q-done")
	if err != nil {
		t.Fatalf("get done: %v", err)
	}
	if done.Status != StatusDone {
		t.Fatalf("done item touched: %q", done.Status)
	}
	resolving, err := store.GetByQueryID(ctx, "q-res")
	if err != nil {
		t.Fatalf("get resolving: %v", err)
	}
	if resolving.Status != StatusReceived {
		t.Fatalf("resolving item = %q, want %q", resolving.Status, StatusReceived)
	}
}

func TestClearTerminalOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active, _ := store.NewItem(ctx, "q-active", "raw", "text", 0)
	finished, _ := store.NewItem(ctx, "q-finished", "raw", "text", 0)
	finished.Status = StatusDone
	if err := store.Update(ctx, finished); err != nil {
		t.Fatalf("update: %v", err)
	}

	removed, err := store.Clear(ctx, false)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	remaining, err := store.GetByID(ctx, active.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if remaining == nil {
		t.Fatal("active item removed")
	}

	removed, err = store.Clear(ctx, true)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("clear all removed = %d, want 1", removed)
	}
}

func TestHealthSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := map[string]Status{
		"q-1": StatusReceived,
		"q-2": StatusResolving,
		"q-3": StatusAwaitingSelection,
		"q-4": StatusDone,
		"q-5": StatusFailed,
	}
	for queryID, status := range seed {
		item, err := store.NewItem(ctx, queryID, "raw", "text", 0)
		if err != nil {
			t.Fatalf("new item: %v", err)
		}
		if status != StatusReceived {
			item.Status = status
			if err := store.Update(ctx, item); err != nil {
				t.Fatalf("update: %v", err)
			}
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	want := HealthSummary{Total: 5, Received: 1, InFlight: 1, Suspended: 1, Done: 1, Failed: 1}
	if health != want {
		t.Fatalf("health = %+v, want %+v", health, want)
	}
}
