// Package render produces poster assets for resolved movies and caches them
// on disk, keyed by a fingerprint of the metadata and the render template.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/metadata"
	"marquee/internal/services"
)

// Renderer is the capability that turns a metadata record into poster image
// bytes. Implementations may block on remote art fetches and must honor the
// context.
type Renderer interface {
	Render(ctx context.Context, record *metadata.Record) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, record *metadata.Record) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, record *metadata.Record) ([]byte, error) {
	return f(ctx, record)
}

// Cache serves poster assets, rendering on miss. Concurrent requests for the
// same movie coalesce onto a single in-flight render; every caller receives
// that render's result or its failure. Failures are never cached.
type Cache struct {
	store           *catalog.Store
	renderer        Renderer
	cacheDir        string
	templateVersion string
	ratingStep      float64
	logger          *slog.Logger

	group singleflight.Group
}

// NewCache builds the render cache over the catalog store.
func NewCache(cfg *config.Config, store *catalog.Store, renderer Renderer, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		store:           store,
		renderer:        renderer,
		cacheDir:        cfg.Paths.PosterCacheDir,
		templateVersion: cfg.Render.TemplateVersion,
		ratingStep:      cfg.Pipeline.RatingSignificance,
		logger:          logger.With(logging.String(logging.FieldComponent, "render-cache")),
	}
}

// Fingerprint combines the record's content version with the render-template
// version. A change to either invalidates cached assets.
func (c *Cache) Fingerprint(record *metadata.Record) string {
	return record.Version(c.ratingStep) + "-" + c.templateVersion
}

// GetOrRender returns the cached poster asset when its fingerprint matches
// the record, and otherwise renders a fresh one. At most one render per movie
// ID is in flight at a time.
func (c *Cache) GetOrRender(ctx context.Context, record *metadata.Record) (*catalog.PosterRef, error) {
	if record == nil || record.ID <= 0 {
		return nil, services.Wrap(services.ErrRenderFailed, "render", "get-or-render", "record with external id required", nil)
	}

	fingerprint := c.Fingerprint(record)
	if cached, err := c.lookup(ctx, record.ID, fingerprint); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	key := strconv.FormatInt(record.ID, 10)
	result, err, shared := c.group.Do(key, func() (any, error) {
		// Re-check under the flight lock: a concurrent caller may have
		// finished the render while this one waited.
		if cached, lookupErr := c.lookup(ctx, record.ID, fingerprint); lookupErr != nil {
			return nil, lookupErr
		} else if cached != nil {
			return cached, nil
		}
		return c.render(ctx, record, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	ref := result.(*catalog.PosterRef)
	if shared {
		c.logger.Debug("coalesced render request",
			logging.Int64(logging.FieldMovieID, record.ID),
			logging.String("fingerprint", fingerprint))
	}
	return ref, nil
}

// lookup returns the cached asset only when its fingerprint matches and the
// file still exists on disk.
func (c *Cache) lookup(ctx context.Context, movieID int64, fingerprint string) (*catalog.PosterRef, error) {
	ref, err := c.store.PosterByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("poster lookup: %w", err)
	}
	if ref == nil || ref.Fingerprint != fingerprint {
		return nil, nil
	}
	if _, statErr := os.Stat(ref.FilePath); statErr != nil {
		c.logger.Warn("cached poster file missing, re-rendering",
			logging.Int64(logging.FieldMovieID, movieID),
			logging.String("path", ref.FilePath))
		return nil, nil
	}
	return ref, nil
}

func (c *Cache) render(ctx context.Context, record *metadata.Record, fingerprint string) (*catalog.PosterRef, error) {
	started := time.Now()
	imageBytes, err := c.renderer.Render(ctx, record)
	if err != nil {
		return nil, services.Wrap(services.ErrRenderFailed, "render", "render",
			fmt.Sprintf("render movie %d", record.ID), err)
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrRenderFailed, "render", "render", "create poster cache dir", err)
	}
	shortPrint := fingerprint
	if len(shortPrint) > 12 {
		shortPrint = shortPrint[:12]
	}
	filePath := filepath.Join(c.cacheDir, fmt.Sprintf("%d-%s.jpg", record.ID, shortPrint))
	if err := os.WriteFile(filePath, imageBytes, 0o644); err != nil {
		return nil, services.Wrap(services.ErrRenderFailed, "render", "render", "write poster file", err)
	}

	ref := &catalog.PosterRef{
		MovieID:     record.ID,
		Fingerprint: fingerprint,
		FilePath:    filePath,
		ByteSize:    int64(len(imageBytes)),
		RenderedAt:  time.Now().UTC(),
	}
	if err := c.store.SavePoster(ctx, *ref); err != nil {
		return nil, fmt.Errorf("index poster: %w", err)
	}

	c.logger.Info("rendered poster",
		logging.Int64(logging.FieldMovieID, record.ID),
		logging.String("title", record.Title),
		logging.Int64("bytes", ref.ByteSize),
		logging.Duration("elapsed", time.Since(started)))
	return ref, nil
}
