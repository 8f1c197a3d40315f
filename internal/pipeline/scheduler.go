package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// CardScanner runs one full scan for a card. The pipeline passes an empty
// search id since scheduled sweeps are not tied to an API request.
type CardScanner interface {
	ScanCard(ctx context.Context, cardName, searchID string) error
}

// Scheduler sweeps the configured watchlist on a fixed interval, scanning
// every card in order. One failing card never stops the sweep.
type Scheduler struct {
	scanner   CardScanner
	watchlist []string
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(scanner CardScanner, watchlist []string, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		scanner:   scanner,
		watchlist: watchlist,
		interval:  interval,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Run sweeps the watchlist immediately, then again on every tick until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.watchlist) == 0 {
		s.logger.Warn("watchlist is empty, scheduler idle")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info("scheduler started",
		slog.Int("cards", len(s.watchlist)),
		slog.Duration("interval", s.interval),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep scans every watchlist card once.
func (s *Scheduler) sweep(ctx context.Context) {
	start := time.Now()
	var failed int
	for _, card := range s.watchlist {
		if ctx.Err() != nil {
			return
		}
		if err := s.scanner.ScanCard(ctx, card, ""); err != nil {
			failed++
			s.logger.Error("watchlist scan failed",
				slog.String("card", card),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Info("watchlist sweep complete",
		slog.Int("cards", len(s.watchlist)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
}
