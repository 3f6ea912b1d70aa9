package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marquee/internal/api"
	"marquee/internal/catalog"
	"marquee/internal/daemon"
	"marquee/internal/logging"
	"marquee/internal/notifications"
	"marquee/internal/omdb"
	"marquee/internal/pipeline"
	"marquee/internal/publish"
	"marquee/internal/queue"
	"marquee/internal/render"
	"marquee/internal/tmdb"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the marquee daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			queueStore, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			catalogStore, err := catalog.Open(cfg)
			if err != nil {
				_ = queueStore.Close()
				return fmt.Errorf("open catalog store: %w", err)
			}

			var searcher tmdb.Searcher
			searcher, err = tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
				tmdb.WithRateLimit(cfg.TMDB.RatePerSecond))
			if err != nil {
				_ = queueStore.Close()
				_ = catalogStore.Close()
				return fmt.Errorf("build tmdb client: %w", err)
			}
			if cfg.OMDb.APIKey != "" {
				secondary, err := omdb.New(cfg.OMDb.APIKey, cfg.OMDb.BaseURL)
				if err != nil {
					_ = queueStore.Close()
					_ = catalogStore.Close()
					return fmt.Errorf("build omdb client: %w", err)
				}
				searcher = tmdb.NewFallback(searcher, secondary, logger)
			}

			notifier := notifications.NewService(cfg)
			adapter := notifications.NewPipelineAdapter(cfg, notifier)
			renders := render.NewCache(cfg, catalogStore, render.NewCompositor(cfg), logger)
			publishSvc := publish.NewService(cfg, catalogStore, publish.NewLibraryPublisher(cfg), logger)
			coordinator := pipeline.New(cfg, queueStore, catalogStore, searcher, renders, publishSvc, adapter, logger)
			apiServer := api.NewServer(cfg, coordinator, queueStore, catalogStore, logger)

			d, err := daemon.New(cfg, queueStore, catalogStore, coordinator, apiServer, logger)
			if err != nil {
				_ = queueStore.Close()
				_ = catalogStore.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			err = d.Wait()
			d.Stop()
			return err
		},
	}
}
