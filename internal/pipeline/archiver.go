package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredArchiver moves expired opportunities to cold storage.
type ExpiredArchiver interface {
	ArchiveExpired(ctx context.Context, now time.Time) (int64, error)
}

// Archiver periodically sweeps expired opportunities out of the database and
// into cold storage.
type Archiver struct {
	archiver ExpiredArchiver
	interval time.Duration
	logger   *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(archiver ExpiredArchiver, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		archiver: archiver,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run executes an archive sweep on every tick until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started", slog.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			archived, err := a.archiver.ArchiveExpired(ctx, time.Now().UTC())
			if err != nil {
				a.logger.Error("archive sweep failed", slog.String("error", err.Error()))
				continue
			}
			if archived > 0 {
				a.logger.Info("archive sweep complete", slog.Int64("archived", archived))
			}
		}
	}
}
