package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PosterRef describes a rendered poster asset on disk. The fingerprint ties
// the asset to the metadata version and render-template version it was
// produced from; a mismatch invalidates the asset.
type PosterRef struct {
	MovieID     int64
	Fingerprint string
	FilePath    string
	ByteSize    int64
	RenderedAt  time.Time
}

// SavePoster records a rendered poster asset, replacing any previous asset
// for the same movie.
func (s *Store) SavePoster(ctx context.Context, ref PosterRef) error {
	if ref.MovieID <= 0 {
		return errors.New("poster requires a positive movie id")
	}
	renderedAt := ref.RenderedAt
	if renderedAt.IsZero() {
		renderedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx, `
        INSERT INTO poster_assets (movie_id, fingerprint, file_path, byte_size, rendered_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(movie_id) DO UPDATE SET
            fingerprint = excluded.fingerprint,
            file_path = excluded.file_path,
            byte_size = excluded.byte_size,
            rendered_at = excluded.rendered_at`,
		ref.MovieID, ref.Fingerprint, ref.FilePath, ref.ByteSize, formatTime(renderedAt),
	)
	if err != nil {
		return fmt.Errorf("save poster: %w", err)
	}
	return nil
}

// PosterByID returns the stored poster asset for a movie, if any.
func (s *Store) PosterByID(ctx context.Context, movieID int64) (*PosterRef, error) {
	ctx = ensureContext(ctx)
	var (
		ref        PosterRef
		renderedAt string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT movie_id, fingerprint, file_path, byte_size, rendered_at
        FROM poster_assets WHERE movie_id = ?`, movieID,
	).Scan(&ref.MovieID, &ref.Fingerprint, &ref.FilePath, &ref.ByteSize, &renderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load poster: %w", err)
	}
	if ts, parseErr := parseTime(renderedAt); parseErr == nil {
		ref.RenderedAt = ts
	}
	return &ref, nil
}

// DeletePoster removes the poster index entry for a movie.
func (s *Store) DeletePoster(ctx context.Context, movieID int64) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM poster_assets WHERE movie_id = ?", movieID); err != nil {
		return fmt.Errorf("delete poster: %w", err)
	}
	return nil
}
