package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marquee/internal/metadata"
)

// Freshness classifies a cache hit relative to the configured TTL.
type Freshness int

const (
	// Fresh means the record is within the TTL and usable as-is.
	Fresh Freshness = iota
	// Stale means the record exceeded the TTL. Callers treat it as a miss
	// but may serve it as a degraded fallback when a re-fetch fails.
	Stale
)

const genreSeparator = "\x1f"

// PutRecord stores or overwrites a confirmed movie record, indexing it by
// its external ID and by every supplied normalized query key. Concurrent
// writes for the same ID resolve last-write-wins by fetch time.
func (s *Store) PutRecord(ctx context.Context, record metadata.Record, keys ...metadata.NormalizedQuery) error {
	ctx = ensureContext(ctx)
	if record.ID <= 0 {
		return errors.New("record requires a positive external id")
	}
	fetchedAt := record.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin put tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
            INSERT INTO metadata_records (movie_id, title, year, synopsis, rating, genres, poster_path, fetched_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(movie_id) DO UPDATE SET
                title = excluded.title,
                year = excluded.year,
                synopsis = excluded.synopsis,
                rating = excluded.rating,
                genres = excluded.genres,
                poster_path = excluded.poster_path,
                fetched_at = excluded.fetched_at
            WHERE excluded.fetched_at >= metadata_records.fetched_at`,
			record.ID,
			record.Title,
			record.Year,
			record.Synopsis,
			record.Rating,
			strings.Join(record.Genres, genreSeparator),
			record.PosterPath,
			formatTime(fetchedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert record: %w", err)
		}

		for _, key := range keys {
			if strings.TrimSpace(key.Title) == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO query_index (query_key, movie_id) VALUES (?, ?)
                ON CONFLICT(query_key) DO UPDATE SET movie_id = excluded.movie_id`,
				key.Key(), record.ID,
			); err != nil {
				return fmt.Errorf("index query %q: %w", key.Key(), err)
			}
		}

		return tx.Commit()
	})
}

// RecordByQuery looks up a cached record through the normalized-query index.
// A stale record is still returned so callers can fall back to it when the
// remote source is unavailable; absence is not an error.
func (s *Store) RecordByQuery(ctx context.Context, key metadata.NormalizedQuery, ttl time.Duration) (*metadata.Record, Freshness, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
        SELECT r.movie_id, r.title, r.year, r.synopsis, r.rating, r.genres, r.poster_path, r.fetched_at
        FROM query_index q
        JOIN metadata_records r ON r.movie_id = q.movie_id
        WHERE q.query_key = ?`, key.Key())
	return scanRecord(row, ttl)
}

// RecordByID looks up a cached record by its external ID.
func (s *Store) RecordByID(ctx context.Context, movieID int64, ttl time.Duration) (*metadata.Record, Freshness, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
        SELECT movie_id, title, year, synopsis, rating, genres, poster_path, fetched_at
        FROM metadata_records WHERE movie_id = ?`, movieID)
	return scanRecord(row, ttl)
}

func scanRecord(row *sql.Row, ttl time.Duration) (*metadata.Record, Freshness, error) {
	var (
		record    metadata.Record
		genres    string
		fetchedAt string
	)
	err := row.Scan(&record.ID, &record.Title, &record.Year, &record.Synopsis, &record.Rating, &genres, &record.PosterPath, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Fresh, nil
	}
	if err != nil {
		return nil, Fresh, fmt.Errorf("scan record: %w", err)
	}

	if genres != "" {
		record.Genres = strings.Split(genres, genreSeparator)
	}
	if ts, parseErr := parseTime(fetchedAt); parseErr == nil {
		record.FetchedAt = ts
	}

	freshness := Fresh
	if ttl > 0 && time.Since(record.FetchedAt) > ttl {
		freshness = Stale
	}
	return &record, freshness, nil
}
