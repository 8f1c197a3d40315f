package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/arbitrage"
	"cardarb/internal/domain"
)

type stubObservationStore struct {
	obs          []domain.PriceObservation
	listByCardFn func(cardName string) []domain.PriceObservation
	inserted     []domain.PriceObservation
	insertErr    error
}

func (s *stubObservationStore) InsertBatch(_ context.Context, obs []domain.PriceObservation) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.inserted = append(s.inserted, obs...)
	return len(obs), nil
}

func (s *stubObservationStore) ListByCard(_ context.Context, cardName string, _ time.Time) ([]domain.PriceObservation, error) {
	if s.listByCardFn != nil {
		return s.listByCardFn(cardName), nil
	}
	return s.obs, nil
}

func (s *stubObservationStore) ListSince(context.Context, time.Time) ([]domain.PriceObservation, error) {
	return s.obs, nil
}

type stubOpportunityStore struct {
	inserted []domain.ArbitrageOpportunity
	byID     map[string]domain.ArbitrageOpportunity
}

func (s *stubOpportunityStore) InsertBatch(_ context.Context, opps []domain.ArbitrageOpportunity) (int, error) {
	s.inserted = append(s.inserted, opps...)
	return len(opps), nil
}

func (s *stubOpportunityStore) GetByID(_ context.Context, id string) (domain.ArbitrageOpportunity, error) {
	opp, ok := s.byID[id]
	if !ok {
		return domain.ArbitrageOpportunity{}, domain.ErrNotFound
	}
	return opp, nil
}

func (s *stubOpportunityStore) ListExpired(context.Context, time.Time, int) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

func (s *stubOpportunityStore) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

type stubCache struct {
	pages   map[string][]domain.ArbitrageOpportunity
	setCard string
	setOpps []domain.ArbitrageOpportunity
}

func (c *stubCache) SetLatest(_ context.Context, cardName string, opps []domain.ArbitrageOpportunity, _ time.Duration) error {
	c.setCard = cardName
	c.setOpps = opps
	return nil
}

func (c *stubCache) GetLatest(_ context.Context, cardName string) ([]domain.ArbitrageOpportunity, error) {
	page, ok := c.pages[domain.NormalizeCardName(cardName)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return page, nil
}

func newTestEvaluator(t *testing.T) *arbitrage.Evaluator {
	t.Helper()
	ev, err := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{Fees: arbitrage.ZeroFees()}, slog.Default())
	require.NoError(t, err)
	return ev
}

func defaultFilter() domain.OpportunityFilter {
	return domain.OpportunityFilter{
		MaxRiskScore: 5.0,
		SortBy:       domain.SortByProfitMargin,
		Limit:        50,
	}
}

func observationPair(card string) []domain.PriceObservation {
	now := time.Now().UTC().Add(-10 * time.Minute)
	return []domain.PriceObservation{
		{
			CardName:   card,
			Platform:   domain.PlatformTCGPlayer,
			Condition:  domain.ConditionNearMint,
			Price:      decimal.NewFromInt(450),
			ObservedAt: now,
		},
		{
			CardName:   card,
			Platform:   domain.PlatformEBay,
			Condition:  domain.ConditionNearMint,
			Price:      decimal.NewFromInt(580),
			ObservedAt: now,
		},
	}
}

func TestListEvaluatesStoredObservations(t *testing.T) {
	obs := &stubObservationStore{obs: observationPair("Charizard")}
	svc := NewOpportunityService(obs, &stubOpportunityStore{}, nil, newTestEvaluator(t), time.Hour, slog.Default())

	ranked, diags, err := svc.List(context.Background(), defaultFilter())
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, ranked, 1)
	assert.True(t, ranked[0].ProfitAmount.Equal(decimal.NewFromInt(130)))
}

func TestListRejectsInvalidFilter(t *testing.T) {
	svc := NewOpportunityService(&stubObservationStore{}, &stubOpportunityStore{}, nil, newTestEvaluator(t), time.Hour, slog.Default())

	filter := defaultFilter()
	filter.Limit = 0
	_, _, err := svc.List(context.Background(), filter)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit", verr.Field)
}

func TestListByCardPrefersCache(t *testing.T) {
	cached := []domain.ArbitrageOpportunity{{
		ID:              "cached-1",
		CardName:        "Charizard",
		BuyPrice:        decimal.NewFromInt(450),
		ProfitAmount:    decimal.NewFromInt(130),
		ProfitMargin:    decimal.NewFromFloat(0.28),
		RiskScore:       1.5,
		ConfidenceLevel: 0.4,
	}}
	cache := &stubCache{pages: map[string][]domain.ArbitrageOpportunity{"charizard": cached}}
	obs := &stubObservationStore{listByCardFn: func(string) []domain.PriceObservation {
		t.Fatal("store should not be consulted on a cache hit")
		return nil
	}}
	svc := NewOpportunityService(obs, &stubOpportunityStore{}, cache, newTestEvaluator(t), time.Hour, slog.Default())

	ranked, _, err := svc.ListByCard(context.Background(), "  Charizard ", defaultFilter())
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "cached-1", ranked[0].ID)
}

func TestListByCardFallsBackToStore(t *testing.T) {
	cache := &stubCache{pages: map[string][]domain.ArbitrageOpportunity{}}
	obs := &stubObservationStore{obs: observationPair("Charizard")}
	svc := NewOpportunityService(obs, &stubOpportunityStore{}, cache, newTestEvaluator(t), time.Hour, slog.Default())

	ranked, _, err := svc.ListByCard(context.Background(), "Charizard", defaultFilter())
	require.NoError(t, err)
	require.Len(t, ranked, 1)
}

func TestGetMissingOpportunity(t *testing.T) {
	store := &stubOpportunityStore{byID: map[string]domain.ArbitrageOpportunity{}}
	svc := NewOpportunityService(&stubObservationStore{}, store, nil, newTestEvaluator(t), time.Hour, slog.Default())

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetReturnsStoredOpportunity(t *testing.T) {
	store := &stubOpportunityStore{byID: map[string]domain.ArbitrageOpportunity{
		"opp-1": {ID: "opp-1", CardName: "Charizard"},
	}}
	svc := NewOpportunityService(&stubObservationStore{}, store, nil, newTestEvaluator(t), time.Hour, slog.Default())

	opp, err := svc.Get(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, "Charizard", opp.CardName)
}
