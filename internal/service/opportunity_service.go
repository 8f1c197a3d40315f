package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cardarb/internal/arbitrage"
	"cardarb/internal/domain"
)

// OpportunityService serves ranked opportunity pages and single-opportunity
// lookups. Listing re-evaluates stored observations on every call so the page
// always reflects the configured fee model and risk weights; persisted
// opportunities are only used for detail lookups by id.
type OpportunityService struct {
	observations  domain.ObservationStore
	opportunities domain.OpportunityStore
	cache         domain.OpportunityCache
	evaluator     *arbitrage.Evaluator
	lookback      time.Duration
	logger        *slog.Logger
}

// NewOpportunityService creates an OpportunityService. The cache is optional;
// when nil every card listing goes through the evaluator.
func NewOpportunityService(
	observations domain.ObservationStore,
	opportunities domain.OpportunityStore,
	cache domain.OpportunityCache,
	evaluator *arbitrage.Evaluator,
	lookback time.Duration,
	logger *slog.Logger,
) *OpportunityService {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &OpportunityService{
		observations:  observations,
		opportunities: opportunities,
		cache:         cache,
		evaluator:     evaluator,
		lookback:      lookback,
		logger:        logger.With(slog.String("component", "opportunity_service")),
	}
}

// List evaluates observations recorded within the lookback window and returns
// the filtered, ranked page along with diagnostics for any malformed records
// that were excluded. An invalid filter fails the whole call.
func (s *OpportunityService) List(ctx context.Context, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error) {
	if err := filter.Validate(); err != nil {
		return nil, nil, err
	}

	since := time.Now().UTC().Add(-s.lookback)
	obs, err := s.observations.ListSince(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("opportunity_service: list observations: %w", err)
	}

	opps, diags := s.evaluator.Evaluate(obs)
	ranked, err := arbitrage.Rank(opps, filter)
	if err != nil {
		return nil, nil, err
	}

	s.logger.DebugContext(ctx, "listed opportunities",
		slog.Int("observations", len(obs)),
		slog.Int("ranked", len(ranked)),
		slog.Int("excluded", len(diags)),
	)
	return ranked, diags, nil
}

// ListByCard returns the ranked page for a single card. The latest scan
// result is served from cache when present; otherwise the card's stored
// observations are re-evaluated.
func (s *OpportunityService) ListByCard(ctx context.Context, cardName string, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error) {
	if err := filter.Validate(); err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetLatest(ctx, cardName)
		switch {
		case err == nil:
			ranked, rerr := arbitrage.Rank(cached, filter)
			if rerr != nil {
				return nil, nil, rerr
			}
			return ranked, nil, nil
		case errors.Is(err, domain.ErrNotFound):
			// fall through to the store
		default:
			s.logger.WarnContext(ctx, "opportunity cache read failed",
				slog.String("card", cardName),
				slog.String("error", err.Error()),
			)
		}
	}

	since := time.Now().UTC().Add(-s.lookback)
	obs, err := s.observations.ListByCard(ctx, cardName, since)
	if err != nil {
		return nil, nil, fmt.Errorf("opportunity_service: list card observations: %w", err)
	}

	opps, diags := s.evaluator.Evaluate(obs)
	ranked, err := arbitrage.Rank(opps, filter)
	if err != nil {
		return nil, nil, err
	}
	return ranked, diags, nil
}

// Get returns one persisted opportunity by id. Missing ids surface
// domain.ErrNotFound.
func (s *OpportunityService) Get(ctx context.Context, id string) (domain.ArbitrageOpportunity, error) {
	opp, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ArbitrageOpportunity{}, domain.ErrNotFound
		}
		return domain.ArbitrageOpportunity{}, fmt.Errorf("opportunity_service: get %s: %w", id, err)
	}
	return opp, nil
}
