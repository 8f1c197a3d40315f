package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

type stubOpportunityService struct {
	listFilter domain.OpportunityFilter
	listCard   string
	opps       []domain.ArbitrageOpportunity
	diags      []domain.Diagnostic
	listErr    error
	getOpp     domain.ArbitrageOpportunity
	getErr     error
}

func (s *stubOpportunityService) List(_ context.Context, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error) {
	s.listFilter = filter
	return s.opps, s.diags, s.listErr
}

func (s *stubOpportunityService) ListByCard(_ context.Context, cardName string, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error) {
	s.listCard = cardName
	s.listFilter = filter
	return s.opps, s.diags, s.listErr
}

func (s *stubOpportunityService) Get(context.Context, string) (domain.ArbitrageOpportunity, error) {
	return s.getOpp, s.getErr
}

func testDefaults() FilterDefaults {
	return FilterDefaults{
		MinProfitMargin: 0.05,
		MaxRiskScore:    5.0,
		Limit:           50,
		MaxLimit:        200,
	}
}

func newListRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestListAppliesDefaults(t *testing.T) {
	svc := &stubOpportunityService{}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	rec := httptest.NewRecorder()
	h.List(rec, newListRequest(t, "/opportunities"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.listFilter.MinProfitMargin.Equal(decimal.NewFromFloat(0.05)))
	assert.Equal(t, 5.0, svc.listFilter.MaxRiskScore)
	assert.Equal(t, domain.SortByProfitMargin, svc.listFilter.SortBy)
	assert.Equal(t, 50, svc.listFilter.Limit)
}

func TestListParsesQueryParams(t *testing.T) {
	svc := &stubOpportunityService{}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	rec := httptest.NewRecorder()
	h.List(rec, newListRequest(t, "/opportunities?min_profit_margin=0.2&max_risk_score=3&platform_pair=tcgplayer-to-ebay&sort_by=confidence_level&limit=10"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.listFilter.MinProfitMargin.Equal(decimal.NewFromFloat(0.2)))
	assert.Equal(t, 3.0, svc.listFilter.MaxRiskScore)
	require.NotNil(t, svc.listFilter.PlatformPair)
	assert.Equal(t, domain.PlatformTCGPlayer, svc.listFilter.PlatformPair.Buy)
	assert.Equal(t, domain.PlatformEBay, svc.listFilter.PlatformPair.Sell)
	assert.Equal(t, domain.SortByConfidence, svc.listFilter.SortBy)
	assert.Equal(t, 10, svc.listFilter.Limit)
}

func TestListClampsLimit(t *testing.T) {
	svc := &stubOpportunityService{}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	rec := httptest.NewRecorder()
	h.List(rec, newListRequest(t, "/opportunities?limit=9999"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, svc.listFilter.Limit)
}

func TestListRejectsBadParams(t *testing.T) {
	h := NewOpportunityHandler(&stubOpportunityService{}, testDefaults(), slog.Default())

	for _, target := range []string{
		"/opportunities?min_profit_margin=high",
		"/opportunities?min_profit_margin=1.5",
		"/opportunities?max_risk_score=abc",
		"/opportunities?platform_pair=ebay->amazon",
		"/opportunities?sort_by=vibes",
		"/opportunities?limit=0",
		"/opportunities?limit=-4",
	} {
		rec := httptest.NewRecorder()
		h.List(rec, newListRequest(t, target))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListRoutesCardQueriesToCache(t *testing.T) {
	svc := &stubOpportunityService{}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	rec := httptest.NewRecorder()
	h.List(rec, newListRequest(t, "/opportunities?card_name=Charizard"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Charizard", svc.listCard)
}

func TestListEmptyPageIsStillAPage(t *testing.T) {
	h := NewOpportunityHandler(&stubOpportunityService{}, testDefaults(), slog.Default())

	rec := httptest.NewRecorder()
	h.List(rec, newListRequest(t, "/opportunities"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Opportunities []json.RawMessage `json:"opportunities"`
		Count         int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Opportunities)
	assert.Zero(t, resp.Count)
}

func TestGetNotFound(t *testing.T) {
	svc := &stubOpportunityService{getErr: domain.ErrNotFound}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/opportunities/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReturnsOpportunity(t *testing.T) {
	svc := &stubOpportunityService{getOpp: domain.ArbitrageOpportunity{
		ID:            "opp-1",
		CardName:      "Charizard",
		BuyPlatform:   domain.PlatformTCGPlayer,
		SellPlatform:  domain.PlatformEBay,
		BuyCondition:  domain.ConditionNearMint,
		SellCondition: domain.ConditionNearMint,
	}}
	h := NewOpportunityHandler(svc, testDefaults(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/opportunities/opp-1", nil)
	req.SetPathValue("id", "opp-1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.ArbitrageOpportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "opp-1", got.ID)
	assert.Equal(t, "Charizard", got.CardName)
	assert.Equal(t, domain.ConditionNearMint, got.BuyCondition)
}
