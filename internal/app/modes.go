package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cardarb/internal/pipeline"
	"cardarb/internal/server"
	"cardarb/internal/server/handler"
)

// ServeMode runs the HTTP API and WebSocket hub without any background
// scanning. Opportunities are computed on demand from stored observations.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	a.startHub(ctx, g, deps)
	return g.Wait()
}

// ScanMode runs the watchlist scheduler and the archive sweep without the
// HTTP API. Useful for headless workers feeding a separately served API.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHub(ctx, g, deps)
	a.startPipelines(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything: HTTP API, WebSocket hub, watchlist scheduler, and
// the archive sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	a.startHub(ctx, g, deps)
	a.startPipelines(ctx, g, deps)
	return g.Wait()
}

// startServer launches the HTTP server and its shutdown watcher.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Opportunities: handler.NewOpportunityHandler(deps.Opportunities, handler.FilterDefaults{
				MinProfitMargin: a.cfg.Scan.DefaultMinProfitMargin,
				MaxRiskScore:    a.cfg.Scan.DefaultMaxRiskScore,
				Limit:           a.cfg.Scan.DefaultLimit,
				MaxLimit:        a.cfg.Scan.MaxLimit,
			}, a.logger),
			Search:  handler.NewSearchHandler(deps.Scans, a.logger),
			Health:  handler.NewHealthHandler(deps.Health, a.logger),
			Metrics: handler.NewMetricsHandler(deps.Health, a.logger),
		},
		deps.Hub,
		a.logger,
	)

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startHub launches the WebSocket hub event loop.
func (a *App) startHub(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})
}

// startPipelines launches the watchlist scheduler and the archive sweep.
func (a *App) startPipelines(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Scan.Enabled {
		sched := pipeline.NewScheduler(
			deps.Scans,
			a.cfg.Scan.Watchlist,
			a.cfg.Scan.Interval.Duration,
			a.logger,
		)
		g.Go(func() error {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("app: scheduler: %w", err)
			}
			return nil
		})
	} else {
		a.logger.InfoContext(ctx, "watchlist scanning disabled")
	}

	archiver := pipeline.NewArchiver(deps.Archiver, time.Hour, a.logger)
	g.Go(func() error {
		if err := archiver.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("app: archiver: %w", err)
		}
		return nil
	})
}
