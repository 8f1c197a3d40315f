package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cardarb/internal/domain"
	"cardarb/internal/health"
)

// HealthBroadcaster pushes fresh health snapshots to dashboard clients.
type HealthBroadcaster interface {
	BroadcastHealth(health domain.SystemHealth)
}

// HealthAlerter notifies operators when the system leaves the healthy state.
type HealthAlerter interface {
	NotifyHealthDegraded(ctx context.Context, health domain.SystemHealth) error
}

// HealthService collects raw samples from every configured infrastructure
// collector and aggregates them into a system health snapshot. A collector
// failure never fails the snapshot: its resources simply arrive without a
// sample and the aggregator reports them as unknown.
type HealthService struct {
	collectors  []domain.SampleCollector
	aggregator  *health.Aggregator
	alerter     HealthAlerter
	broadcaster HealthBroadcaster
	timeout     time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	lastStatus domain.Status
}

// NewHealthService creates a HealthService. Timeout bounds one full
// collection pass across all collectors. Alerter and broadcaster are each
// optional; a nil dependency disables that fan-out.
func NewHealthService(
	collectors []domain.SampleCollector,
	aggregator *health.Aggregator,
	alerter HealthAlerter,
	broadcaster HealthBroadcaster,
	timeout time.Duration,
	logger *slog.Logger,
) *HealthService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthService{
		collectors:  collectors,
		aggregator:  aggregator,
		alerter:     alerter,
		broadcaster: broadcaster,
		timeout:     timeout,
		logger:      logger.With(slog.String("component", "health_service")),
		lastStatus:  domain.StatusHealthy,
	}
}

// Check collects fresh samples and returns the aggregated snapshot. Status
// transitions fan out to the dashboard feed and, when the system leaves
// healthy, to the alert channels.
func (s *HealthService) Check(ctx context.Context) domain.SystemHealth {
	samples, _ := s.Collect(ctx)
	snapshot := s.aggregator.Aggregate(samples, time.Now().UTC())
	s.reportTransition(ctx, snapshot)
	return snapshot
}

// reportTransition pushes the snapshot out when the status changed since the
// previous check.
func (s *HealthService) reportTransition(ctx context.Context, snapshot domain.SystemHealth) {
	s.mu.Lock()
	changed := snapshot.Status != s.lastStatus
	s.lastStatus = snapshot.Status
	s.mu.Unlock()
	if !changed {
		return
	}

	s.logger.InfoContext(ctx, "health status changed",
		slog.String("status", string(snapshot.Status)),
	)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastHealth(snapshot)
	}
	if s.alerter != nil && snapshot.Status != domain.StatusHealthy {
		if err := s.alerter.NotifyHealthDegraded(ctx, snapshot); err != nil {
			s.logger.WarnContext(ctx, "health alert failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Collect fans out to every collector concurrently and merges the results.
// Collector failures are reported as diagnostics rather than errors so a
// single unreachable backend degrades the snapshot instead of killing it.
func (s *HealthService) Collect(ctx context.Context) ([]domain.ComponentHealthSample, []domain.Diagnostic) {
	if len(s.collectors) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		samples []domain.ComponentHealthSample
		diags   []domain.Diagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.collectors {
		g.Go(func() error {
			got, err := c.Collect(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "collector failed",
					slog.String("kind", string(c.Kind())),
					slog.String("error", err.Error()),
				)
				diags = append(diags, domain.Diagnostic{
					Source: string(c.Kind()),
					Reason: err.Error(),
				})
				return nil
			}
			samples = append(samples, got...)
			return nil
		})
	}
	g.Wait()

	// Stable ordering across passes: collectors finish in arbitrary order.
	sortSamples(samples)
	return samples, diags
}

// sortSamples orders samples by kind (in the canonical kind order) then by
// resource id.
func sortSamples(samples []domain.ComponentHealthSample) {
	kindRank := make(map[domain.ResourceKind]int, len(domain.ResourceKinds))
	for i, k := range domain.ResourceKinds {
		kindRank[k] = i
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if kindRank[samples[i].Kind] != kindRank[samples[j].Kind] {
			return kindRank[samples[i].Kind] < kindRank[samples[j].Kind]
		}
		return samples[i].ResourceID < samples[j].ResourceID
	})
}
