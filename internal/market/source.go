// Package market fans price fetches out across the configured marketplace
// sources.
package market

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"cardarb/internal/domain"
)

// MultiSource queries every configured observation source concurrently and
// merges the results. A failing source is reported as a diagnostic rather
// than failing the whole fetch: partial market coverage still yields usable
// observations.
type MultiSource struct {
	sources []domain.ObservationSource
	logger  *slog.Logger
}

// NewMultiSource wraps the given sources.
func NewMultiSource(sources []domain.ObservationSource, logger *slog.Logger) *MultiSource {
	return &MultiSource{
		sources: sources,
		logger:  logger.With(slog.String("component", "market")),
	}
}

// Sources returns the wrapped sources.
func (m *MultiSource) Sources() []domain.ObservationSource {
	return m.sources
}

// FetchAll queries every source for the card and returns the merged
// observations plus one diagnostic per failed source. Observations keep
// source order so repeated fetches are comparable.
func (m *MultiSource) FetchAll(ctx context.Context, cardName string, opts domain.FetchOptions) ([]domain.PriceObservation, []domain.Diagnostic) {
	results := make([][]domain.PriceObservation, len(m.sources))
	var mu sync.Mutex
	var diags []domain.Diagnostic

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		g.Go(func() error {
			obs, err := src.Fetch(ctx, cardName, opts)
			if err != nil {
				m.logger.Warn("source fetch failed",
					slog.String("platform", string(src.Platform())),
					slog.String("card", cardName),
					slog.Any("error", err),
				)
				mu.Lock()
				diags = append(diags, domain.Diagnostic{
					Source: string(src.Platform()),
					Reason: err.Error(),
				})
				mu.Unlock()
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.PriceObservation
	for _, obs := range results {
		merged = append(merged, obs...)
	}
	return merged, diags
}
