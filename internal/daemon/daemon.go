package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"marquee/internal/api"
	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/notifications"
	"marquee/internal/pipeline"
	"marquee/internal/queue"
)

const shutdownGrace = 10 * time.Second

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	queue       *queue.Store
	catalog     *catalog.Store
	coordinator *pipeline.Coordinator
	apiServer   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	apiErr  chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        queue.HealthSummary
	Catalog      catalog.Stats
	QueueDBPath  string
	LockFilePath string
	APIBind      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, queueStore *queue.Store, catalogStore *catalog.Store, coordinator *pipeline.Coordinator, apiServer *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || queueStore == nil || catalogStore == nil || coordinator == nil || logger == nil {
		return nil, errors.New("daemon requires config, stores, coordinator, and logger")
	}
	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:         cfg,
		logger:      logger.With(logging.String(logging.FieldComponent, "daemon")),
		queue:       queueStore,
		catalog:     catalogStore,
		coordinator: coordinator,
		apiServer:   apiServer,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, arms the pipeline, and begins serving the
// control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another marquee daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.coordinator.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start pipeline: %w", err)
	}

	d.apiErr = make(chan error, 1)
	if d.apiServer != nil {
		go func() {
			d.apiErr <- d.apiServer.Start()
		}()
	}

	d.running.Store(true)
	d.logger.Info("marquee daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.cfg.Paths.APIBind))
	return nil
}

// Wait blocks until the context given to Start is cancelled or the API
// listener fails.
func (d *Daemon) Wait() error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	select {
	case <-d.ctx.Done():
		return nil
	case err := <-d.apiErr:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := d.apiServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("api shutdown", logging.Error(err))
		}
		cancel()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.coordinator.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("marquee daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.queue != nil {
		errs = append(errs, d.queue.Close())
	}
	if d.catalog != nil {
		errs = append(errs, d.catalog.Close())
	}
	return errors.Join(errs...)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.queue.Health(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.queue.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	stats, err := d.catalog.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Queue:        health,
		Catalog:      stats,
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		APIBind:      d.cfg.Paths.APIBind,
	}, nil
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
