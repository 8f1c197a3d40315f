package arbitrage

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

var testClock = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, cfg EvaluatorConfig) *Evaluator {
	t.Helper()
	if cfg.Fees == nil {
		cfg.Fees = ZeroFees()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testClock }
	}
	ev, err := NewEvaluator(cfg, slog.Default())
	require.NoError(t, err)
	return ev
}

func obs(card string, platform domain.Platform, price float64) domain.PriceObservation {
	return domain.PriceObservation{
		CardName:   card,
		Platform:   platform,
		Condition:  domain.ConditionNearMint,
		Price:      decimal.NewFromFloat(price),
		ObservedAt: testClock.Add(-10 * time.Minute),
	}
}

func TestNewEvaluatorRequiresFeeModel(t *testing.T) {
	_, err := NewEvaluator(EvaluatorConfig{}, slog.Default())
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "evaluator", cfgErr.Section)
}

func TestEvaluateCrossPlatformSpread(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	opps, diags := ev.Evaluate([]domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		obs("Charizard Base Set", domain.PlatformEBay, 580),
	})

	assert.Empty(t, diags)
	require.Len(t, opps, 1)

	got := opps[0]
	assert.Equal(t, domain.PlatformTCGPlayer, got.BuyPlatform)
	assert.Equal(t, domain.PlatformEBay, got.SellPlatform)
	assert.True(t, got.ProfitAmount.Equal(decimal.NewFromInt(130)), "profit %s", got.ProfitAmount)
	assert.InDelta(t, 0.2889, got.ProfitMargin.InexactFloat64(), 0.0001)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, testClock, got.CreatedAt)
	assert.Equal(t, testClock.Add(24*time.Hour), got.ExpiresAt)
}

func TestEvaluateFeesReduceProfit(t *testing.T) {
	rates := map[domain.Platform]FeeRate{
		domain.PlatformEBay:      {Percentage: decimal.NewFromFloat(0.125)},
		domain.PlatformTCGPlayer: {Percentage: decimal.NewFromFloat(0.11)},
		domain.PlatformAmazon:    {Percentage: decimal.NewFromFloat(0.10)},
		domain.PlatformOther:     {Percentage: decimal.NewFromFloat(0.10)},
	}
	fees, err := NewFeeModel(rates, nil)
	require.NoError(t, err)
	ev := newTestEvaluator(t, EvaluatorConfig{Fees: fees})

	opps, _ := ev.Evaluate([]domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		obs("Charizard Base Set", domain.PlatformEBay, 580),
	})

	// Selling on ebay costs 12.5% of 580 = 72.50, leaving 57.50 profit. The
	// reverse direction (buy 580, sell 450) is a loss and must not appear.
	require.Len(t, opps, 1)
	assert.True(t, opps[0].ProfitAmount.Equal(decimal.NewFromFloat(57.50)), "profit %s", opps[0].ProfitAmount)
}

func TestEvaluateUnprofitablePairsExcluded(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	opps, diags := ev.Evaluate([]domain.PriceObservation{
		obs("Pikachu Illustrator", domain.PlatformEBay, 100),
		obs("Pikachu Illustrator", domain.PlatformTCGPlayer, 100),
	})

	assert.Empty(t, diags)
	assert.Empty(t, opps)
}

func TestEvaluateMinProfitAmount(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{
		MinProfitAmount: decimal.NewFromInt(10),
	})

	opps, _ := ev.Evaluate([]domain.PriceObservation{
		obs("Blastoise Base Set", domain.PlatformTCGPlayer, 100),
		obs("Blastoise Base Set", domain.PlatformEBay, 105),
	})

	assert.Empty(t, opps, "5.00 profit sits under the 10.00 floor")
}

func TestEvaluateMalformedRecordsReportedNotFatal(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	bad := obs("", domain.PlatformEBay, 50)
	negative := obs("Mewtwo Promo", domain.PlatformEBay, -3)

	opps, diags := ev.Evaluate([]domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		bad,
		negative,
		obs("Charizard Base Set", domain.PlatformEBay, 580),
	})

	require.Len(t, diags, 2)
	assert.Equal(t, 1, diags[0].Record)
	assert.Equal(t, "card_name", diags[0].Field)
	assert.Equal(t, 2, diags[1].Record)
	assert.Equal(t, "price", diags[1].Field)

	// The valid pair still evaluates.
	require.Len(t, opps, 1)
	assert.True(t, opps[0].ProfitAmount.Equal(decimal.NewFromInt(130)))
}

func TestEvaluateSoldListingsAreNotBuyable(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	sold := obs("Lugia Neo Genesis", domain.PlatformTCGPlayer, 200)
	sold.Sold = true

	opps, _ := ev.Evaluate([]domain.PriceObservation{
		sold,
		obs("Lugia Neo Genesis", domain.PlatformEBay, 300),
	})

	// The sold listing can anchor the sell side but never the buy side, and
	// buying on ebay at 300 to sell at 200 is a loss.
	assert.Empty(t, opps)
}

func TestEvaluateSamePlatformDifferentCondition(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	played := obs("Alakazam Base Set", domain.PlatformEBay, 40)
	played.Condition = domain.ConditionPlayed
	mint := obs("Alakazam Base Set", domain.PlatformEBay, 90)
	mint.Condition = domain.ConditionMint

	opps, _ := ev.Evaluate([]domain.PriceObservation{played, mint})

	// Same platform is allowed when conditions differ, and buying a worse
	// condition than sold raises the risk score above the base.
	require.Len(t, opps, 1)
	assert.Greater(t, opps[0].RiskScore, 1.0)
}

func TestEvaluateCardsDoNotCrossPair(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	opps, _ := ev.Evaluate([]domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 100),
		obs("Blastoise Base Set", domain.PlatformEBay, 500),
	})

	assert.Empty(t, opps)
}

func TestEvaluateNormalizesCardNames(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	a := obs("Charizard  Base Set", domain.PlatformTCGPlayer, 450)
	b := obs("charizard base set", domain.PlatformEBay, 580)

	opps, _ := ev.Evaluate([]domain.PriceObservation{a, b})

	require.Len(t, opps, 1)
}

func TestEvaluateOneOpportunityPerDirectedPair(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	// Three listings per side would otherwise multiply into nine variants of
	// the same tcgplayer-to-ebay trade.
	opps, diags := ev.Evaluate([]domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 455),
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 460),
		obs("Charizard Base Set", domain.PlatformEBay, 580),
		obs("Charizard Base Set", domain.PlatformEBay, 585),
		obs("Charizard Base Set", domain.PlatformEBay, 590),
	})

	assert.Empty(t, diags)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.PlatformTCGPlayer, opps[0].BuyPlatform)
	assert.Equal(t, domain.PlatformEBay, opps[0].SellPlatform)
	// All nine candidates share the same corroborating stats, so the widest
	// spread wins the tie.
	assert.True(t, opps[0].ProfitAmount.Equal(decimal.NewFromInt(140)), "profit %s", opps[0].ProfitAmount)
}

func TestEvaluateDeterministicApartFromIDs(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	input := []domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		obs("Charizard Base Set", domain.PlatformEBay, 580),
		obs("Blastoise Base Set", domain.PlatformTCGPlayer, 80),
		obs("Blastoise Base Set", domain.PlatformAmazon, 120),
	}

	first, _ := ev.Evaluate(input)
	second, _ := ev.Evaluate(input)

	require.Equal(t, len(first), len(second))
	for i := range first {
		a, b := first[i], second[i]
		a.ID, b.ID = "", ""
		assert.Equal(t, a, b)
	}
}

func TestEvaluateInvariants(t *testing.T) {
	ev := newTestEvaluator(t, EvaluatorConfig{})

	input := []domain.PriceObservation{
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 450),
		obs("Charizard Base Set", domain.PlatformTCGPlayer, 470),
		obs("Charizard Base Set", domain.PlatformEBay, 580),
		obs("Charizard Base Set", domain.PlatformAmazon, 610),
		obs("Blastoise Base Set", domain.PlatformOther, 15),
		obs("Blastoise Base Set", domain.PlatformEBay, 55),
	}

	opps, diags := ev.Evaluate(input)
	assert.Empty(t, diags)
	require.NotEmpty(t, opps)

	for _, opp := range opps {
		assert.True(t, opp.ProfitAmount.IsPositive(), "profit must be positive")
		wantMargin := opp.ProfitAmount.Div(opp.BuyPrice)
		assert.True(t, opp.ProfitMargin.Equal(wantMargin), "margin must equal profit/buy")
		assert.GreaterOrEqual(t, opp.RiskScore, 1.0)
		assert.LessOrEqual(t, opp.RiskScore, 5.0)
		assert.GreaterOrEqual(t, opp.ConfidenceLevel, 0.0)
		assert.LessOrEqual(t, opp.ConfidenceLevel, 1.0)
		if opp.BuyPlatform == opp.SellPlatform {
			assert.NotEqual(t, opp.BuyCondition, opp.SellCondition)
		}
	}
}
