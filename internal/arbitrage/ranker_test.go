package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

func opp(card string, margin, confidence float64) domain.ArbitrageOpportunity {
	m := decimal.NewFromFloat(margin)
	buy := decimal.NewFromInt(100)
	return domain.ArbitrageOpportunity{
		ID:              card + "-id",
		CardName:        card,
		BuyPlatform:     domain.PlatformTCGPlayer,
		SellPlatform:    domain.PlatformEBay,
		BuyPrice:        buy,
		ProfitAmount:    buy.Mul(m),
		ProfitMargin:    m,
		RiskScore:       2.0,
		ConfidenceLevel: confidence,
	}
}

func defaultFilter() domain.OpportunityFilter {
	return domain.OpportunityFilter{
		MaxRiskScore: 5,
		SortBy:       domain.SortByProfitMargin,
		Limit:        50,
	}
}

func TestRankRejectsInvalidFilter(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.OpportunityFilter)
	}{
		{"negative margin", func(f *domain.OpportunityFilter) { f.MinProfitMargin = decimal.NewFromFloat(-0.1) }},
		{"margin above one", func(f *domain.OpportunityFilter) { f.MinProfitMargin = decimal.NewFromFloat(1.5) }},
		{"negative risk", func(f *domain.OpportunityFilter) { f.MaxRiskScore = -1 }},
		{"unknown sort key", func(f *domain.OpportunityFilter) { f.SortBy = "alphabetical" }},
		{"zero limit", func(f *domain.OpportunityFilter) { f.Limit = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := defaultFilter()
			tc.mutate(&f)

			_, err := Rank([]domain.ArbitrageOpportunity{opp("a", 0.2, 0.5)}, f)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestRankFilterIsConjunction(t *testing.T) {
	pair := domain.PlatformPair{Buy: domain.PlatformTCGPlayer, Sell: domain.PlatformEBay}

	good := opp("charizard", 0.40, 0.8)
	thinMargin := opp("blastoise", 0.10, 0.9)
	risky := opp("mewtwo", 0.50, 0.9)
	risky.RiskScore = 4.5
	wrongPair := opp("lugia", 0.50, 0.9)
	wrongPair.SellPlatform = domain.PlatformAmazon

	f := defaultFilter()
	f.MinProfitMargin = decimal.NewFromFloat(0.25)
	f.MaxRiskScore = 3
	f.PlatformPair = &pair

	got, err := Rank([]domain.ArbitrageOpportunity{good, thinMargin, risky, wrongPair}, f)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "charizard", got[0].CardName)
}

func TestRankHighMarginFloorCanEmptyThePage(t *testing.T) {
	f := defaultFilter()
	f.MinProfitMargin = decimal.NewFromFloat(0.30)

	got, err := Rank([]domain.ArbitrageOpportunity{
		opp("charizard", 0.2889, 0.8),
		opp("blastoise", 0.15, 0.9),
	}, f)
	require.NoError(t, err)

	assert.Empty(t, got)
}

func TestRankSortsDescendingBySelectedKey(t *testing.T) {
	input := []domain.ArbitrageOpportunity{
		opp("blastoise", 0.15, 0.9),
		opp("charizard", 0.40, 0.5),
		opp("mewtwo", 0.25, 0.7),
	}

	byMargin, err := Rank(input, defaultFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"charizard", "mewtwo", "blastoise"}, cardNames(byMargin))

	f := defaultFilter()
	f.SortBy = domain.SortByConfidence
	byConfidence, err := Rank(input, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"blastoise", "mewtwo", "charizard"}, cardNames(byConfidence))
}

func TestRankTieBreaksAreDeterministic(t *testing.T) {
	// Identical margin: confidence decides; identical confidence too: card
	// name decides. Shuffled input must not change the page.
	a := opp("zapdos", 0.20, 0.6)
	b := opp("articuno", 0.20, 0.6)
	c := opp("moltres", 0.20, 0.9)

	first, err := Rank([]domain.ArbitrageOpportunity{a, b, c}, defaultFilter())
	require.NoError(t, err)
	second, err := Rank([]domain.ArbitrageOpportunity{c, a, b}, defaultFilter())
	require.NoError(t, err)

	assert.Equal(t, []string{"moltres", "articuno", "zapdos"}, cardNames(first))
	assert.Equal(t, cardNames(first), cardNames(second))
}

func TestRankTruncatesAfterSorting(t *testing.T) {
	f := defaultFilter()
	f.Limit = 2

	got, err := Rank([]domain.ArbitrageOpportunity{
		opp("blastoise", 0.15, 0.9),
		opp("charizard", 0.40, 0.5),
		opp("mewtwo", 0.25, 0.7),
	}, f)
	require.NoError(t, err)

	// The top two by margin survive even though the weakest entry came first
	// in the input.
	assert.Equal(t, []string{"charizard", "mewtwo"}, cardNames(got))
}

func TestRankEmptyInput(t *testing.T) {
	got, err := Rank(nil, defaultFilter())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func cardNames(opps []domain.ArbitrageOpportunity) []string {
	names := make([]string, len(opps))
	for i, o := range opps {
		names[i] = o.CardName
	}
	return names
}
