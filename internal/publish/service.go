// Package publish posts finished poster assets to an outbound channel with
// dedup against the publication log and bounded retry on transient failures.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/metadata"
	"marquee/internal/services"
)

// Publisher is the outbound channel capability. Publish returns an opaque
// channel reference for the created post.
type Publisher interface {
	Publish(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error) {
	return f(ctx, asset, record, caption)
}

// Result describes the outcome of a publish attempt.
type Result struct {
	Published bool
	// AlreadyPublished is set when dedup suppressed the post. Not an error.
	AlreadyPublished bool
	ChannelRef       string
}

// Service coordinates dedup, posting, and the publication log.
type Service struct {
	store             *catalog.Store
	publisher         Publisher
	ratingStep        float64
	republishOnChange bool
	retryAttempts     int
	retryBackoff      time.Duration
	logger            *slog.Logger
}

// NewService builds the publish service over the catalog store.
func NewService(cfg *config.Config, store *catalog.Store, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:             store,
		publisher:         publisher,
		ratingStep:        cfg.Pipeline.RatingSignificance,
		republishOnChange: cfg.Pipeline.RepublishOnChange,
		retryAttempts:     cfg.Pipeline.PublishRetryAttempts,
		retryBackoff:      time.Duration(cfg.Pipeline.PublishRetryBackoff) * time.Second,
		logger:            logger.With(logging.String(logging.FieldComponent, "publish")),
	}
}

// Publish posts the asset unless the movie was already published at the same
// metadata version. The publication record is written only after a successful
// post, so a failed publish stays eligible for a future attempt.
func (s *Service) Publish(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record) (Result, error) {
	version := record.Version(s.ratingStep)
	decision, err := s.store.ShouldPublish(ctx, record.ID, version, s.republishOnChange)
	if err != nil {
		return Result{}, fmt.Errorf("dedup check: %w", err)
	}
	if !decision.Allowed {
		s.logger.Info("publish suppressed, already posted",
			logging.Int64(logging.FieldMovieID, record.ID),
			logging.String("version", version))
		result := Result{AlreadyPublished: true}
		if decision.Previous != nil {
			result.ChannelRef = decision.Previous.ChannelRef
		}
		return result, nil
	}

	caption := Caption(record.Title, record.Year, record.Rating, record.Genres, record.Synopsis)
	channelRef, err := s.publishWithRetry(ctx, asset, record, caption)
	if err != nil {
		return Result{}, err
	}

	if err := s.store.RecordPublished(ctx, record.ID, version, channelRef); err != nil {
		return Result{}, fmt.Errorf("record publication: %w", err)
	}
	s.logger.Info("published poster",
		logging.Int64(logging.FieldMovieID, record.ID),
		logging.String("title", record.Title),
		logging.String("channel_ref", channelRef))
	return Result{Published: true, ChannelRef: channelRef}, nil
}

func (s *Service) publishWithRetry(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error) {
	attempts := s.retryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		channelRef, err := s.publisher.Publish(ctx, asset, record, caption)
		if err == nil {
			return channelRef, nil
		}
		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		backoff := s.retryBackoff * time.Duration(1<<(attempt-1))
		s.logger.Warn("publish attempt failed, retrying",
			logging.Int64(logging.FieldMovieID, record.ID),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", services.Wrap(services.ErrPublishFailed, "publish", "post",
		fmt.Sprintf("publish movie %d after %d attempts", record.ID, attempts), lastErr)
}
