package daemon

import (
	"context"
	"testing"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/metadata"
	"marquee/internal/pipeline"
	"marquee/internal/publish"
	"marquee/internal/render"
	"marquee/internal/testsupport"
	"marquee/internal/tmdb"
)

type emptySearcher struct{}

func (emptySearcher) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return &tmdb.Response{}, nil
}

func (emptySearcher) MovieDetails(ctx context.Context, movieID int64) (*tmdb.Result, error) {
	return nil, context.Canceled
}

func (emptySearcher) GenreNames(ctx context.Context) map[int64]string { return nil }

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	queueStore := testsupport.MustOpenQueue(t, cfg)

	renderer := render.RendererFunc(func(ctx context.Context, record *metadata.Record) ([]byte, error) {
		return []byte("poster"), nil
	})
	publisher := publish.PublisherFunc(func(ctx context.Context, asset *catalog.PosterRef, record *metadata.Record, caption string) (string, error) {
		return "msg-1", nil
	})
	renders := render.NewCache(cfg, catalogStore, renderer, nil)
	publishSvc := publish.NewService(cfg, catalogStore, publisher, nil)
	coordinator := pipeline.New(cfg, queueStore, catalogStore, emptySearcher{}, renders, publishSvc, nil, nil)

	d, err := New(cfg, queueStore, catalogStore, coordinator, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	d := newTestDaemon(t, nil)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running status")
	}

	d.Stop()
	status, err = d.Status(ctx)
	if err != nil {
		t.Fatalf("status after stop: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped status")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newTestDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}

	// Same config means the same lock file.
	second := newTestDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second instance to be rejected")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newTestDaemon(t, nil)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if sent {
		t.Fatal("expected no send without a configured topic")
	}
	if message == "" {
		t.Fatal("expected explanatory message")
	}
}

func TestQueueHealthThroughDaemon(t *testing.T) {
	d := newTestDaemon(t, nil)
	testsupport.NewQueueItem(t, d.queue, "Inception 2010")

	health, err := d.QueueHealth(context.Background())
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if health.Total != 1 || health.Received != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}
