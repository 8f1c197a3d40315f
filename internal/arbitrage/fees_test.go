package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

func fullRates() map[domain.Platform]FeeRate {
	return map[domain.Platform]FeeRate{
		domain.PlatformEBay:      {Percentage: decimal.NewFromFloat(0.125)},
		domain.PlatformTCGPlayer: {Percentage: decimal.NewFromFloat(0.11)},
		domain.PlatformAmazon:    {Percentage: decimal.NewFromFloat(0.10), Flat: decimal.NewFromFloat(1.80)},
		domain.PlatformOther:     {Percentage: decimal.NewFromFloat(0.10)},
	}
}

func TestNewFeeModelRequiresEveryPlatform(t *testing.T) {
	rates := fullRates()
	delete(rates, domain.PlatformAmazon)

	_, err := NewFeeModel(rates, nil)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "fees", cfgErr.Section)
	assert.Contains(t, cfgErr.Reason, "amazon")
}

func TestNewFeeModelRejectsNegativeRates(t *testing.T) {
	rates := fullRates()
	rates[domain.PlatformEBay] = FeeRate{Percentage: decimal.NewFromFloat(-0.1)}

	_, err := NewFeeModel(rates, nil)
	require.Error(t, err)
}

func TestEstimatePercentagePlusFlat(t *testing.T) {
	m, err := NewFeeModel(fullRates(), nil)
	require.NoError(t, err)

	pair := domain.PlatformPair{Buy: domain.PlatformEBay, Sell: domain.PlatformAmazon}
	got := m.Estimate(pair, decimal.NewFromInt(100))

	// 10% of 100 plus the 1.80 flat component.
	assert.True(t, got.Equal(decimal.NewFromFloat(11.80)), "got %s", got)
}

func TestEstimateRoundsToCents(t *testing.T) {
	m, err := NewFeeModel(fullRates(), nil)
	require.NoError(t, err)

	pair := domain.PlatformPair{Buy: domain.PlatformTCGPlayer, Sell: domain.PlatformEBay}
	got := m.Estimate(pair, decimal.NewFromFloat(33.33))

	assert.True(t, got.Equal(decimal.NewFromFloat(4.17)), "got %s", got)
}

func TestEstimatePairOverrideWins(t *testing.T) {
	pair := domain.PlatformPair{Buy: domain.PlatformTCGPlayer, Sell: domain.PlatformEBay}
	overrides := map[domain.PlatformPair]FeeRate{
		pair: {Percentage: decimal.NewFromFloat(0.05)},
	}
	m, err := NewFeeModel(fullRates(), overrides)
	require.NoError(t, err)

	price := decimal.NewFromInt(200)
	assert.True(t, m.Estimate(pair, price).Equal(decimal.NewFromInt(10)))

	// The reverse direction is a different pair and keeps the platform rate.
	reverse := domain.PlatformPair{Buy: domain.PlatformEBay, Sell: domain.PlatformTCGPlayer}
	assert.True(t, m.Estimate(reverse, price).Equal(decimal.NewFromInt(22)))
}

func TestZeroFeesChargesNothing(t *testing.T) {
	m := ZeroFees()
	for _, buy := range domain.Platforms {
		for _, sell := range domain.Platforms {
			got := m.Estimate(domain.PlatformPair{Buy: buy, Sell: sell}, decimal.NewFromInt(999))
			assert.True(t, got.IsZero())
		}
	}
}
