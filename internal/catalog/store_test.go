package catalog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"marquee/internal/catalog"
	"marquee/internal/metadata"
)

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(fetchedAt time.Time) metadata.Record {
	return metadata.Record{
		ID:         27205,
		Title:      "Inception",
		Year:       2010,
		Synopsis:   "A thief who steals corporate secrets.",
		Rating:     8.4,
		Genres:     []string{"Action", "Science Fiction"},
		PosterPath: "/abc.jpg",
		FetchedAt:  fetchedAt,
	}
}

func TestPutRecordAndLookup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	key := metadata.NormalizedQuery{Title: "inception", Year: 2010}

	if err := store.PutRecord(ctx, sampleRecord(time.Now().UTC()), key); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, freshness, err := store.RecordByQuery(ctx, key, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("lookup by query: %v", err)
	}
	if got == nil || got.ID != 27205 || got.Title != "Inception" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if freshness != catalog.Fresh {
		t.Fatal("expected fresh record")
	}
	if len(got.Genres) != 2 || got.Genres[1] != "Science Fiction" {
		t.Fatalf("genres not round-tripped: %v", got.Genres)
	}

	byID, _, err := store.RecordByID(ctx, 27205, 0)
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if byID == nil || byID.Year != 2010 {
		t.Fatalf("unexpected record by id: %+v", byID)
	}
}

func TestLookupAbsentIsNotError(t *testing.T) {
	store := newStore(t)
	got, _, err := store.RecordByQuery(context.Background(), metadata.NormalizedQuery{Title: "missing"}, time.Hour)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("expected absent record, got %+v", got)
	}
}

func TestStaleRecordReturnedAsStale(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	key := metadata.NormalizedQuery{Title: "inception", Year: 2010}

	old := sampleRecord(time.Now().UTC().Add(-10 * 24 * time.Hour))
	if err := store.PutRecord(ctx, old, key); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, freshness, err := store.RecordByQuery(ctx, key, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil {
		t.Fatal("stale record must still be returned for fallback use")
	}
	if freshness != catalog.Stale {
		t.Fatal("expected stale classification")
	}
}

func TestPutRecordLastWriteWinsByFetchTime(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	newer := sampleRecord(time.Now().UTC())
	newer.Rating = 9.0
	if err := store.PutRecord(ctx, newer); err != nil {
		t.Fatalf("put newer: %v", err)
	}

	older := sampleRecord(time.Now().UTC().Add(-time.Hour))
	older.Rating = 1.0
	if err := store.PutRecord(ctx, older); err != nil {
		t.Fatalf("put older: %v", err)
	}

	got, _, err := store.RecordByID(ctx, 27205, 0)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Rating != 9.0 {
		t.Fatalf("older fetch overwrote newer record: rating %v", got.Rating)
	}
}

func TestPutRecordFractionalSecondOrdering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Sub-second fetch times whose RFC3339Nano renderings would sort in the
	// wrong order (".5Z" compares after ".52Z" lexically). The fixed-width
	// storage format keeps the SQL guard aligned with wall-clock order.
	older := sampleRecord(time.Date(2026, 8, 30, 12, 0, 0, 500_000_000, time.UTC))
	older.Title = "Inception (stale)"
	if err := store.PutRecord(ctx, older); err != nil {
		t.Fatalf("put older: %v", err)
	}

	newer := sampleRecord(time.Date(2026, 8, 30, 12, 0, 0, 520_000_000, time.UTC))
	newer.Title = "Inception"
	if err := store.PutRecord(ctx, newer); err != nil {
		t.Fatalf("put newer: %v", err)
	}

	got, _, err := store.RecordByID(ctx, 27205, 0)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Title != "Inception" {
		t.Fatalf("newer fetch lost to older record: title %q", got.Title)
	}
	if !got.FetchedAt.Equal(newer.FetchedAt) {
		t.Fatalf("fetched_at not round-tripped: %v", got.FetchedAt)
	}
}

func TestMultipleQueryKeysResolveToSameRecord(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	keys := []metadata.NormalizedQuery{
		{Title: "inception", Year: 2010},
		{Title: "inception"},
	}
	if err := store.PutRecord(ctx, sampleRecord(time.Now().UTC()), keys...); err != nil {
		t.Fatalf("put: %v", err)
	}
	for _, key := range keys {
		got, _, err := store.RecordByQuery(ctx, key, time.Hour)
		if err != nil {
			t.Fatalf("lookup %q: %v", key.Key(), err)
		}
		if got == nil || got.ID != 27205 {
			t.Fatalf("key %q did not resolve: %+v", key.Key(), got)
		}
	}
}

func TestPosterRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, sampleRecord(time.Now().UTC())); err != nil {
		t.Fatalf("put record: %v", err)
	}
	ref := catalog.PosterRef{MovieID: 27205, Fingerprint: "fp-1", FilePath: "/tmp/27205.jpg", ByteSize: 1024}
	if err := store.SavePoster(ctx, ref); err != nil {
		t.Fatalf("save poster: %v", err)
	}

	got, err := store.PosterByID(ctx, 27205)
	if err != nil {
		t.Fatalf("load poster: %v", err)
	}
	if got == nil || got.Fingerprint != "fp-1" || got.ByteSize != 1024 {
		t.Fatalf("unexpected poster: %+v", got)
	}

	if err := store.DeletePoster(ctx, 27205); err != nil {
		t.Fatalf("delete poster: %v", err)
	}
	got, err = store.PosterByID(ctx, 27205)
	if err != nil {
		t.Fatalf("reload poster: %v", err)
	}
	if got != nil {
		t.Fatal("expected poster removed")
	}
}

func TestPublishDedup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	decision, err := store.ShouldPublish(ctx, 27205, "v-abc", false)
	if err != nil {
		t.Fatalf("should publish: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("first publish must be allowed")
	}

	if err := store.RecordPublished(ctx, 27205, "v-abc", "msg-1"); err != nil {
		t.Fatalf("record published: %v", err)
	}

	decision, err = store.ShouldPublish(ctx, 27205, "v-abc", false)
	if err != nil {
		t.Fatalf("should publish: %v", err)
	}
	if decision.Allowed || !decision.AlreadyPublished {
		t.Fatalf("unchanged version must be suppressed: %+v", decision)
	}

	// Version changed but republish disabled: still suppressed.
	decision, err = store.ShouldPublish(ctx, 27205, "v-def", false)
	if err != nil {
		t.Fatalf("should publish: %v", err)
	}
	if decision.Allowed {
		t.Fatal("republish must stay off when disabled")
	}

	// Version changed with republish enabled: allowed.
	decision, err = store.ShouldPublish(ctx, 27205, "v-def", true)
	if err != nil {
		t.Fatalf("should publish: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("version change with republish enabled must be allowed")
	}
	if decision.Previous == nil || decision.Previous.ChannelRef != "msg-1" {
		t.Fatalf("expected previous publication context: %+v", decision.Previous)
	}
}

func TestStats(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, sampleRecord(time.Now().UTC()), metadata.NormalizedQuery{Title: "inception"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.RecordPublished(ctx, 27205, "v", "ref"); err != nil {
		t.Fatalf("record published: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Records != 1 || stats.QueryKeys != 1 || stats.Publications != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSchemaMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")
	store, err := catalog.OpenPath(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = store.Close()

	// Reopening the same file succeeds at the matching version.
	store, err = catalog.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = store.Close()
}
