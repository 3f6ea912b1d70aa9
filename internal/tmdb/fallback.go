package tmdb

import (
	"context"
	"log/slog"

	"marquee/internal/logging"
)

// SecondaryIDBase marks the start of the identifier range reserved for
// secondary metadata sources. A non-TMDB Searcher must offset its movie IDs
// into this range so detail lookups route back to the source that produced
// the candidate.
const SecondaryIDBase = int64(1) << 40

// Fallback chains two metadata sources. The secondary is consulted when the
// primary errors or returns no results, so a TMDB outage degrades lookups
// instead of failing them.
type Fallback struct {
	primary   Searcher
	secondary Searcher
	logger    *slog.Logger
}

var _ Searcher = (*Fallback)(nil)

// NewFallback wraps primary with secondary as the degraded-path source.
func NewFallback(primary, secondary Searcher, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logging.NewComponentLogger(logger, "metadata-fallback"),
	}
}

// SearchMovie queries the primary source and falls back to the secondary
// when the primary errors or comes back empty.
func (f *Fallback) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	resp, err := f.primary.SearchMovie(ctx, query, opts)
	if err == nil && resp != nil && len(resp.Results) > 0 {
		return resp, nil
	}
	if ctx.Err() != nil {
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	if err != nil {
		f.logger.Warn("primary search failed, trying secondary source",
			logging.String("query", query), logging.Error(err))
	} else {
		f.logger.Info("primary search empty, trying secondary source",
			logging.String("query", query))
	}

	fallbackResp, fallbackErr := f.secondary.SearchMovie(ctx, query, opts)
	if fallbackErr != nil {
		f.logger.Warn("secondary search failed", logging.String("query", query), logging.Error(fallbackErr))
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
	return fallbackResp, nil
}

// MovieDetails routes reserved-range IDs straight to the secondary source
// and otherwise falls back to it only when the primary errors.
func (f *Fallback) MovieDetails(ctx context.Context, movieID int64) (*Result, error) {
	if movieID >= SecondaryIDBase {
		return f.secondary.MovieDetails(ctx, movieID)
	}
	res, err := f.primary.MovieDetails(ctx, movieID)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	f.logger.Warn("primary details failed, trying secondary source",
		logging.Int64("movie_id", movieID), logging.Error(err))
	fallbackRes, fallbackErr := f.secondary.MovieDetails(ctx, movieID)
	if fallbackErr != nil {
		return nil, err
	}
	return fallbackRes, nil
}

// GenreNames returns the primary genre table, consulting the secondary only
// when the primary has none.
func (f *Fallback) GenreNames(ctx context.Context) map[int64]string {
	if names := f.primary.GenreNames(ctx); len(names) > 0 {
		return names
	}
	return f.secondary.GenreNames(ctx)
}
