// The hareline worker consumes scrape requests from NATS, runs the pipeline
// against Postgres, and serves the admin/metrics HTTP surface.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/adapter"
	"github.com/harrierhub/hareline/internal/bus"
	"github.com/harrierhub/hareline/internal/config"
	"github.com/harrierhub/hareline/internal/metrics"
	"github.com/harrierhub/hareline/internal/pipeline"
	"github.com/harrierhub/hareline/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log := zerolog.New(os.Stderr)
		log.Error().Err(err).Msg("worker exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("HARELINE_CONFIG"))
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if cfg.DatabaseURL == "" {
		return errors.New("database_url is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	met := metrics.New()
	deps := adapter.Deps{
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
		Log:    log,
	}
	orch := pipeline.New(pg, deps, met, log)

	nc, err := bus.Connect(ctx, cfg.NATSURL, log)
	if err != nil {
		return err
	}
	defer nc.Drain()

	sub, err := bus.Subscribe(nc, log, func(req bus.ScrapeRequest) {
		outcome, err := orch.ScrapeSource(ctx, req.SourceID, pipeline.Options{
			Days:  req.Days,
			Force: req.Force,
		})
		if err != nil {
			log.Error().Err(err).Str("source_id", req.SourceID).Msg("scrape request failed")
			return
		}
		log.Info().
			Str("source_id", req.SourceID).
			Str("status", string(outcome.Status)).
			Msg("scrape request done")
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: newRouter(pg, bus.NewPublisher(nc), met, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
