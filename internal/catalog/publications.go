package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Publication records a successful channel post for a movie.
type Publication struct {
	MovieID     int64
	Version     string
	ChannelRef  string
	PublishedAt time.Time
}

// PublishDecision explains the outcome of a dedup check.
type PublishDecision struct {
	Allowed bool
	// AlreadyPublished is set when the movie was posted before at the same
	// metadata version. A normal, expected outcome rather than an error.
	AlreadyPublished bool
	Previous         *Publication
}

// ShouldPublish reports whether a movie at the given metadata version may be
// posted. A publish is allowed when no publication exists, or when the
// recorded version differs and republishOnChange is enabled.
func (s *Store) ShouldPublish(ctx context.Context, movieID int64, version string, republishOnChange bool) (PublishDecision, error) {
	prev, err := s.PublicationByID(ctx, movieID)
	if err != nil {
		return PublishDecision{}, err
	}
	if prev == nil {
		return PublishDecision{Allowed: true}, nil
	}
	if prev.Version != version && republishOnChange {
		return PublishDecision{Allowed: true, Previous: prev}, nil
	}
	return PublishDecision{AlreadyPublished: true, Previous: prev}, nil
}

// RecordPublished writes the publication record for a movie. Called only
// after a successful publish of a poster derived from the current record.
func (s *Store) RecordPublished(ctx context.Context, movieID int64, version, channelRef string) error {
	if movieID <= 0 {
		return errors.New("publication requires a positive movie id")
	}
	_, err := s.execWithRetry(ctx, `
        INSERT INTO publication_log (movie_id, version, channel_ref, published_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(movie_id) DO UPDATE SET
            version = excluded.version,
            channel_ref = excluded.channel_ref,
            published_at = excluded.published_at`,
		movieID, version, channelRef, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record publication: %w", err)
	}
	return nil
}

// PublicationByID returns the publication record for a movie, if any.
func (s *Store) PublicationByID(ctx context.Context, movieID int64) (*Publication, error) {
	ctx = ensureContext(ctx)
	var (
		pub         Publication
		publishedAt string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT movie_id, version, channel_ref, published_at
        FROM publication_log WHERE movie_id = ?`, movieID,
	).Scan(&pub.MovieID, &pub.Version, &pub.ChannelRef, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load publication: %w", err)
	}
	if ts, parseErr := parseTime(publishedAt); parseErr == nil {
		pub.PublishedAt = ts
	}
	return &pub, nil
}
