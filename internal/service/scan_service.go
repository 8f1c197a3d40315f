package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardarb/internal/arbitrage"
	"cardarb/internal/domain"
)

// ObservationFetcher pulls fresh price observations for a card from every
// configured marketplace. Per-source failures come back as diagnostics.
type ObservationFetcher interface {
	FetchAll(ctx context.Context, cardName string, opts domain.FetchOptions) ([]domain.PriceObservation, []domain.Diagnostic)
}

// Broadcaster pushes live scan updates to connected dashboard clients.
type Broadcaster interface {
	BroadcastOpportunities(cardName string, opps []domain.ArbitrageOpportunity)
	BroadcastScanStatus(searchID, cardName, status string)
}

// Alerter notifies external channels about freshly found opportunities and
// failed scans.
type Alerter interface {
	NotifyOpportunities(ctx context.Context, cardName string, opps []domain.ArbitrageOpportunity) error
	NotifyScanFailed(ctx context.Context, cardName string, cause error) error
}

// ScanServiceConfig holds the scan pipeline's tunable parameters.
type ScanServiceConfig struct {
	// SearchCooldown throttles on-demand searches per card.
	SearchCooldown time.Duration
	// LockTTL bounds how long a crashed scan keeps its card locked.
	LockTTL time.Duration
	// ScanTimeout bounds a single background scan end to end.
	ScanTimeout time.Duration
	// CacheTTL is how long the latest ranked page stays cached per card.
	CacheTTL time.Duration
	// FetchLimit caps listings requested per marketplace.
	FetchLimit int
	// DefaultFilter ranks the scan results that get persisted and pushed.
	DefaultFilter domain.OpportunityFilter
}

func (c ScanServiceConfig) withDefaults() ScanServiceConfig {
	if c.SearchCooldown <= 0 {
		c.SearchCooldown = 5 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 90 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 50
	}
	return c
}

// ScanService runs the fetch-evaluate-rank pipeline for a card: pull fresh
// listings from every marketplace, persist the raw observations, compute and
// rank opportunities, then fan the results out to cache, alerts, and
// WebSocket clients.
type ScanService struct {
	fetcher       ObservationFetcher
	observations  domain.ObservationStore
	opportunities domain.OpportunityStore
	cache         domain.OpportunityCache
	limiter       domain.SearchLimiter
	locker        domain.ScanLocker
	evaluator     *arbitrage.Evaluator
	alerter       Alerter
	broadcaster   Broadcaster
	cfg           ScanServiceConfig
	logger        *slog.Logger
}

// NewScanService creates a ScanService. Cache, limiter, locker, alerter, and
// broadcaster are each optional; a nil dependency disables that fan-out.
func NewScanService(
	fetcher ObservationFetcher,
	observations domain.ObservationStore,
	opportunities domain.OpportunityStore,
	cache domain.OpportunityCache,
	limiter domain.SearchLimiter,
	locker domain.ScanLocker,
	evaluator *arbitrage.Evaluator,
	alerter Alerter,
	broadcaster Broadcaster,
	cfg ScanServiceConfig,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		fetcher:       fetcher,
		observations:  observations,
		opportunities: opportunities,
		cache:         cache,
		limiter:       limiter,
		locker:        locker,
		evaluator:     evaluator,
		alerter:       alerter,
		broadcaster:   broadcaster,
		cfg:           cfg.withDefaults(),
		logger:        logger.With(slog.String("component", "scan_service")),
	}
}

// Trigger validates and enqueues an on-demand search. It returns the search
// id immediately; the scan itself runs in the background. A card searched
// again within the cooldown window returns domain.ErrRateLimited.
func (s *ScanService) Trigger(ctx context.Context, req domain.SearchRequest) (string, error) {
	req.CardName = strings.TrimSpace(req.CardName)
	if len(req.CardName) < 2 {
		return "", &domain.ValidationError{Field: "card_name", Reason: "must be at least 2 characters"}
	}
	if req.MaxPrice.IsNegative() {
		return "", &domain.ValidationError{Field: "max_price", Reason: "must not be negative"}
	}
	switch req.Priority {
	case "", "low", "normal", "high":
	default:
		return "", &domain.ValidationError{Field: "priority", Reason: "must be one of low, normal, high"}
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, req.CardName, s.cfg.SearchCooldown)
		if err != nil {
			return "", fmt.Errorf("scan_service: search cooldown check: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("scan_service: card %q searched too recently: %w", req.CardName, domain.ErrRateLimited)
		}
	}

	searchID := uuid.NewString()
	go func() {
		scanCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanTimeout)
		defer cancel()
		if err := s.scan(scanCtx, req, searchID); err != nil {
			s.logger.Error("background scan failed",
				slog.String("search_id", searchID),
				slog.String("card", req.CardName),
				slog.String("error", err.Error()),
			)
		}
	}()

	s.logger.InfoContext(ctx, "search accepted",
		slog.String("search_id", searchID),
		slog.String("card", req.CardName),
		slog.String("priority", req.Priority),
	)
	return searchID, nil
}

// EstimatedCompletion reports when a search accepted now should have results.
func (s *ScanService) EstimatedCompletion(now time.Time) time.Time {
	return now.Add(s.cfg.ScanTimeout)
}

// ScanCard runs one full scan for a card with default options. The watchlist
// scheduler uses this entry point.
func (s *ScanService) ScanCard(ctx context.Context, cardName, searchID string) error {
	return s.scan(ctx, domain.SearchRequest{CardName: cardName, IncludeSoldData: true}, searchID)
}

// scan runs one full scan. Concurrent scans of the same card are serialized
// through the locker; the second caller gets domain.ErrLockHeld and should
// treat the in-flight scan as its own.
func (s *ScanService) scan(ctx context.Context, req domain.SearchRequest, searchID string) error {
	cardName := req.CardName
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, domain.NormalizeCardName(cardName), s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.InfoContext(ctx, "scan already in flight",
					slog.String("card", cardName),
				)
				return nil
			}
			return fmt.Errorf("scan_service: acquire scan lock: %w", err)
		}
		defer release()
	}

	s.broadcastStatus(searchID, cardName, "running")

	obs, diags := s.fetcher.FetchAll(ctx, cardName, domain.FetchOptions{
		MaxPrice:    req.MaxPrice,
		IncludeSold: req.IncludeSoldData,
		Limit:       s.cfg.FetchLimit,
	})
	for _, d := range diags {
		s.logger.WarnContext(ctx, "source degraded during scan",
			slog.String("card", cardName),
			slog.String("source", d.Source),
			slog.String("reason", d.Reason),
		)
	}
	if len(obs) == 0 {
		s.broadcastStatus(searchID, cardName, "completed")
		s.logger.InfoContext(ctx, "scan found no listings",
			slog.String("card", cardName),
		)
		return nil
	}

	inserted, err := s.observations.InsertBatch(ctx, obs)
	if err != nil {
		err = fmt.Errorf("scan_service: persist observations: %w", err)
		s.reportFailure(ctx, searchID, cardName, err)
		return err
	}

	opps, evalDiags := s.evaluator.Evaluate(obs)
	ranked, err := arbitrage.Rank(opps, s.cfg.DefaultFilter)
	if err != nil {
		err = fmt.Errorf("scan_service: rank opportunities: %w", err)
		s.reportFailure(ctx, searchID, cardName, err)
		return err
	}

	if len(ranked) > 0 {
		if _, err := s.opportunities.InsertBatch(ctx, ranked); err != nil {
			s.logger.ErrorContext(ctx, "persist opportunities failed",
				slog.String("card", cardName),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, cardName, ranked, s.cfg.CacheTTL); err != nil {
			s.logger.WarnContext(ctx, "cache update failed",
				slog.String("card", cardName),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.alerter != nil && len(ranked) > 0 {
		if err := s.alerter.NotifyOpportunities(ctx, cardName, ranked); err != nil {
			s.logger.WarnContext(ctx, "opportunity alert failed",
				slog.String("card", cardName),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.broadcaster != nil && len(ranked) > 0 {
		s.broadcaster.BroadcastOpportunities(cardName, ranked)
	}
	s.broadcastStatus(searchID, cardName, "completed")

	s.logger.InfoContext(ctx, "scan completed",
		slog.String("search_id", searchID),
		slog.String("card", cardName),
		slog.Int("observations", inserted),
		slog.Int("excluded", len(evalDiags)),
		slog.Int("opportunities", len(ranked)),
	)
	return nil
}

func (s *ScanService) broadcastStatus(searchID, cardName, status string) {
	if s.broadcaster == nil || searchID == "" {
		return
	}
	s.broadcaster.BroadcastScanStatus(searchID, cardName, status)
}

// reportFailure fans a scan failure out to the dashboard and alert channels.
func (s *ScanService) reportFailure(ctx context.Context, searchID, cardName string, cause error) {
	s.broadcastStatus(searchID, cardName, "failed")
	if s.alerter == nil {
		return
	}
	if err := s.alerter.NotifyScanFailed(ctx, cardName, cause); err != nil {
		s.logger.WarnContext(ctx, "scan failure alert failed",
			slog.String("card", cardName),
			slog.String("error", err.Error()),
		)
	}
}
