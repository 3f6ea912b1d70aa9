// Package pipeline drives submitted queries through normalization,
// resolution, rendering, and publication, persisting every state change to
// the queue store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/ingest"
	"marquee/internal/logging"
	"marquee/internal/metadata"
	"marquee/internal/publish"
	"marquee/internal/queue"
	"marquee/internal/render"
	"marquee/internal/resolver"
	"marquee/internal/services"
	"marquee/internal/tmdb"
)

// Notifier receives pipeline lifecycle events. Implementations must not
// block; the coordinator calls them inline.
type Notifier interface {
	MovieResolved(ctx context.Context, queryID string, record *metadata.Record)
	SelectionRequested(ctx context.Context, queryID string, selection *resolver.Selection)
	PosterPublished(ctx context.Context, queryID string, record *metadata.Record, channelRef string)
	QueryFailed(ctx context.Context, queryID string, stage string, err error)
}

type noopNotifier struct{}

func (noopNotifier) MovieResolved(context.Context, string, *metadata.Record)           {}
func (noopNotifier) SelectionRequested(context.Context, string, *resolver.Selection)   {}
func (noopNotifier) PosterPublished(context.Context, string, *metadata.Record, string) {}
func (noopNotifier) QueryFailed(context.Context, string, string, error)                {}

// ErrNotAwaitingSelection is returned by ProvideSelection when the query is
// not suspended.
var ErrNotAwaitingSelection = errors.New("query is not awaiting selection")

// ErrUnknownQuery is returned when a query ID has no in-flight state.
var ErrUnknownQuery = errors.New("unknown query")

// flight is the in-memory state of one in-flight query.
type flight struct {
	item        *queue.Item
	cancel      context.CancelFunc
	sink        *ticketSink
	selectionCh chan int64

	mu         sync.Mutex
	awaiting   bool
	failed     bool
	candidates []metadata.Candidate
}

// Coordinator owns the per-query state machines and the per-movie leases.
type Coordinator struct {
	cfg       *config.Config
	queue     *queue.Store
	catalog   *catalog.Store
	searcher  tmdb.Searcher
	resolver  *resolver.Resolver
	renders   *render.Cache
	publisher *publish.Service
	notifier  Notifier
	logger    *slog.Logger

	locks *lockRegistry
	slots chan struct{}

	mu      sync.Mutex
	flights map[string]*flight

	baseCtx context.Context
	wg      sync.WaitGroup
}

// New wires the coordinator over its collaborators. A nil notifier is
// replaced with a no-op.
func New(
	cfg *config.Config,
	queueStore *queue.Store,
	catalogStore *catalog.Store,
	searcher tmdb.Searcher,
	renders *render.Cache,
	publisher *publish.Service,
	notifier Notifier,
	logger *slog.Logger,
) *Coordinator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	maxActive := cfg.Pipeline.MaxActiveQueries
	if maxActive <= 0 {
		maxActive = 1
	}
	return &Coordinator{
		cfg:       cfg,
		queue:     queueStore,
		catalog:   catalogStore,
		searcher:  searcher,
		resolver:  resolver.New(cfg),
		renders:   renders,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With(logging.String(logging.FieldComponent, "pipeline")),
		locks:     newLockRegistry(),
		slots:     make(chan struct{}, maxActive),
		flights:   make(map[string]*flight),
	}
}

// Start reclaims interrupted work and arms the coordinator. Queries
// submitted before Start fail.
func (c *Coordinator) Start(ctx context.Context) error {
	reclaimed, err := c.queue.ResetInFlight(ctx)
	if err != nil {
		return fmt.Errorf("reclaim interrupted queries: %w", err)
	}
	if reclaimed > 0 {
		c.logger.Info("reset interrupted queries to received", logging.Int64("count", reclaimed))
	}
	c.baseCtx = ctx
	return nil
}

// Stop waits for in-flight queries to finish. Callers cancel the Start
// context first to interrupt blocked work.
func (c *Coordinator) Stop() {
	c.wg.Wait()
}

// Submit accepts a raw query and returns a ticket for observing its
// progress. Processing happens asynchronously; admission beyond the
// configured concurrency limit queues behind a slot.
func (c *Coordinator) Submit(ctx context.Context, raw ingest.Query) (*Ticket, error) {
	if c.baseCtx == nil {
		return nil, errors.New("coordinator not started")
	}
	queryID := uuid.New().String()
	item, err := c.queue.NewItem(ctx, queryID, raw.Raw, string(raw.Source), raw.YearHint)
	if err != nil {
		return nil, fmt.Errorf("enqueue query: %w", err)
	}

	runCtx, cancel := context.WithCancel(c.baseCtx)
	fl := &flight{
		item:        item,
		cancel:      cancel,
		sink:        newTicketSink(queryID),
		selectionCh: make(chan int64, 1),
	}
	c.mu.Lock()
	c.flights[queryID] = fl
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.finish(fl)
		select {
		case c.slots <- struct{}{}:
			defer func() { <-c.slots }()
		case <-runCtx.Done():
			c.fail(runCtx, fl, "admission", runCtx.Err())
			return
		}
		c.run(runCtx, fl, raw)
	}()
	return fl.sink.ticket(), nil
}

// ProvideSelection resolves an awaiting-selection suspension with the chosen
// candidate ID.
func (c *Coordinator) ProvideSelection(queryID string, candidateID int64) error {
	c.mu.Lock()
	fl, ok := c.flights[queryID]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownQuery
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()
	if !fl.awaiting {
		return ErrNotAwaitingSelection
	}
	found := false
	for _, candidate := range fl.candidates {
		if candidate.ID == candidateID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("candidate %d is not among the offered options", candidateID)
	}
	fl.awaiting = false
	fl.selectionCh <- candidateID
	return nil
}

// Cancel stops a query best-effort. Queries that already reached the
// resolved state run to completion; their results stay cached for reuse.
func (c *Coordinator) Cancel(queryID string) error {
	c.mu.Lock()
	fl, ok := c.flights[queryID]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownQuery
	}
	fl.mu.Lock()
	status := fl.item.Status
	fl.mu.Unlock()
	if status == queue.StatusResolved || status == queue.StatusRendering || status == queue.StatusPublishing {
		return fmt.Errorf("query %s already resolved, letting it finish", queryID)
	}
	fl.cancel()
	return nil
}

func (c *Coordinator) finish(fl *flight) {
	c.mu.Lock()
	delete(c.flights, fl.item.QueryID)
	c.mu.Unlock()
	fl.cancel()
	fl.sink.close()
}

func (c *Coordinator) run(ctx context.Context, fl *flight, raw ingest.Query) {
	ctx = services.WithQueryID(ctx, fl.item.QueryID)
	logger := c.logger.With(logging.String(logging.FieldQueryID, fl.item.QueryID))

	// Normalizing.
	if !c.setStatus(ctx, fl, queue.StatusNormalizing, nil) {
		return
	}
	normalized, err := ingest.Normalize(raw)
	if err != nil {
		c.fail(ctx, fl, "normalizing", err)
		return
	}
	fl.item.NormalizedTitle = normalized.Title
	fl.item.NormalizedYear = normalized.Year
	logger.Debug("query normalized",
		logging.String("title", normalized.Title),
		logging.Int("year", normalized.Year))

	// Resolving.
	if !c.setStatus(ctx, fl, queue.StatusResolving, nil) {
		return
	}
	movieID, staleRecord, err := c.resolve(ctx, fl, normalized)
	if err != nil {
		c.fail(ctx, fl, "resolving", err)
		return
	}

	// Only one query per movie proceeds past this point at a time. Losers
	// of the race wait here and then replay from the now-warm caches.
	release, err := c.locks.acquire(ctx, movieID)
	if err != nil {
		c.fail(ctx, fl, "resolving", err)
		return
	}
	defer release()

	record, err := c.confirmRecord(ctx, movieID, staleRecord, normalized)
	if err != nil {
		c.fail(ctx, fl, "resolving", err)
		return
	}
	fl.item.MovieID = record.ID
	fl.item.MovieTitle = record.Title
	fl.item.MovieVersion = record.Version(c.cfg.Pipeline.RatingSignificance)
	if !c.setStatus(ctx, fl, queue.StatusResolved, nil) {
		return
	}
	c.notifier.MovieResolved(ctx, fl.item.QueryID, record)

	// Rendering.
	if !c.setStatus(ctx, fl, queue.StatusRendering, nil) {
		return
	}
	asset, err := c.renders.GetOrRender(ctx, record)
	if err != nil {
		c.fail(ctx, fl, "rendering", err)
		return
	}

	// Publishing.
	if !c.setStatus(ctx, fl, queue.StatusPublishing, nil) {
		return
	}
	result, err := c.publisher.Publish(ctx, asset, record)
	if err != nil {
		c.fail(ctx, fl, "publishing", err)
		return
	}
	fl.item.ChannelRef = result.ChannelRef
	if result.Published {
		c.notifier.PosterPublished(ctx, fl.item.QueryID, record, result.ChannelRef)
	} else {
		logger.Info("publication suppressed by dedup",
			logging.Int64(logging.FieldMovieID, record.ID))
	}

	c.setStatus(ctx, fl, queue.StatusDone, &Transition{
		Status:     queue.StatusDone,
		ChannelRef: result.ChannelRef,
	})
	logger.Info("query finished",
		logging.Int64(logging.FieldMovieID, record.ID),
		logging.String("title", record.Title))
}

// resolve turns a normalized query into a confirmed movie ID. A fresh cache
// hit short-circuits the remote search. A stale hit is carried along as the
// degraded fallback for a failing re-fetch.
func (c *Coordinator) resolve(ctx context.Context, fl *flight, normalized metadata.NormalizedQuery) (int64, *metadata.Record, error) {
	cached, freshness, err := c.catalog.RecordByQuery(ctx, normalized, c.metadataTTL())
	if err != nil {
		return 0, nil, err
	}
	if cached != nil && freshness == catalog.Fresh {
		return cached.ID, nil, nil
	}
	var stale *metadata.Record
	if cached != nil {
		stale = cached
	}

	resp, err := c.searcher.SearchMovie(ctx, normalized.Title, tmdb.SearchOptions{Year: normalized.Year})
	if err != nil {
		if stale != nil {
			c.logger.Warn("search failed, serving stale record",
				logging.String(logging.FieldQueryID, fl.item.QueryID),
				logging.Error(err))
			return stale.ID, stale, nil
		}
		return 0, nil, err
	}

	candidates := make([]metadata.Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		candidates = append(candidates, tmdb.Candidate(result))
	}

	outcome, err := c.resolver.Resolve(normalized, candidates)
	if err != nil {
		return 0, nil, err
	}
	if outcome.AutoSelected() {
		return outcome.Chosen.ID, stale, nil
	}
	chosenID, err := c.awaitSelection(ctx, fl, normalized, outcome.Selection, candidates)
	if err != nil {
		return 0, nil, err
	}
	return chosenID, stale, nil
}

// awaitSelection suspends the query until the caller picks a candidate or
// the timeout elapses, after which the top-ranked candidate wins.
func (c *Coordinator) awaitSelection(ctx context.Context, fl *flight, normalized metadata.NormalizedQuery, selection *resolver.Selection, candidates []metadata.Candidate) (int64, error) {
	fl.mu.Lock()
	fl.awaiting = true
	fl.candidates = selection.Options
	fl.mu.Unlock()

	if !c.setStatus(ctx, fl, queue.StatusAwaitingSelection, &Transition{
		Status:    queue.StatusAwaitingSelection,
		Selection: selection,
	}) {
		return 0, ctx.Err()
	}
	c.notifier.SelectionRequested(ctx, fl.item.QueryID, selection)

	timeout := time.Duration(c.cfg.Pipeline.SelectionTimeoutMinutes) * time.Minute
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chosenID := <-fl.selectionCh:
		return chosenID, nil
	case <-timer.C:
		fl.mu.Lock()
		fl.awaiting = false
		fl.mu.Unlock()
		top, err := c.resolver.TopRanked(normalized, candidates)
		if err != nil {
			return 0, err
		}
		c.logger.Info("selection timed out, falling back to top-ranked candidate",
			logging.String(logging.FieldQueryID, fl.item.QueryID),
			logging.Int64(logging.FieldMovieID, top.ID))
		return top.ID, nil
	case <-ctx.Done():
		fl.mu.Lock()
		fl.awaiting = false
		fl.mu.Unlock()
		return 0, ctx.Err()
	}
}

// confirmRecord returns the full metadata record for a confirmed movie ID.
// Runs under the per-movie lease, so at most one detail fetch happens per
// movie; later holders hit the fresh cache. When the re-fetch fails and a
// stale record exists, the stale record is served as a degraded fallback.
func (c *Coordinator) confirmRecord(ctx context.Context, movieID int64, stale *metadata.Record, normalized metadata.NormalizedQuery) (*metadata.Record, error) {
	cached, freshness, err := c.catalog.RecordByID(ctx, movieID, c.metadataTTL())
	if err != nil {
		return nil, err
	}
	if cached != nil && freshness == catalog.Fresh {
		// Index this query spelling against the already-cached record.
		if err := c.catalog.PutRecord(ctx, *cached, normalized); err != nil {
			return nil, err
		}
		return cached, nil
	}
	if cached != nil && stale == nil {
		stale = cached
	}

	detail, err := c.searcher.MovieDetails(ctx, movieID)
	if err != nil {
		if stale != nil {
			c.logger.Warn("detail re-fetch failed, serving stale record",
				logging.Int64(logging.FieldMovieID, movieID),
				logging.Error(err))
			return stale, nil
		}
		return nil, err
	}

	record := tmdb.Record(*detail, c.searcher.GenreNames(ctx), time.Now().UTC())
	if err := c.catalog.PutRecord(ctx, record, normalized); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Coordinator) metadataTTL() time.Duration {
	return time.Duration(c.cfg.Pipeline.MetadataTTLHours) * time.Hour
}

// setStatus persists the status and emits the matching transition. Returns
// false when the run context is cancelled.
func (c *Coordinator) setStatus(ctx context.Context, fl *flight, status queue.Status, tr *Transition) bool {
	if ctx.Err() != nil {
		c.fail(ctx, fl, string(fl.item.Status), ctx.Err())
		return false
	}
	fl.mu.Lock()
	fl.item.Status = status
	fl.mu.Unlock()
	if err := c.queue.Update(ctx, fl.item); err != nil {
		c.logger.Error("persist status change",
			logging.String(logging.FieldQueryID, fl.item.QueryID),
			logging.String("status", string(status)),
			logging.Error(err))
	}
	if tr == nil {
		tr = &Transition{Status: status}
	}
	fl.sink.emit(*tr)
	return true
}

// fail records the terminal failure for a flight. Idempotent: cancellation
// surfaces both in setStatus and in its caller's error path, and only the
// first call may persist, notify, and emit.
func (c *Coordinator) fail(ctx context.Context, fl *flight, stage string, err error) {
	fl.mu.Lock()
	if fl.failed {
		fl.mu.Unlock()
		return
	}
	fl.failed = true
	fl.item.Status = queue.StatusFailed
	fl.item.ErrorMessage = err.Error()
	fl.mu.Unlock()
	// Persist with a fresh context so shutdown cancellation doesn't lose
	// the terminal state.
	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if updateErr := c.queue.Update(storeCtx, fl.item); updateErr != nil {
		c.logger.Error("persist failure state",
			logging.String(logging.FieldQueryID, fl.item.QueryID),
			logging.Error(updateErr))
	}
	c.logger.Error("query failed",
		logging.String(logging.FieldQueryID, fl.item.QueryID),
		logging.String(logging.FieldStage, stage),
		logging.Error(err))
	c.notifier.QueryFailed(ctx, fl.item.QueryID, stage, err)
	fl.sink.emit(Transition{Status: queue.StatusFailed, Err: err})
}
