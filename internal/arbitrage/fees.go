// Package arbitrage implements the opportunity evaluation core: pairing price
// observations into candidate opportunities, scoring risk and confidence, and
// ranking the results against caller-supplied filters.
package arbitrage

import (
	"github.com/shopspring/decimal"

	"cardarb/internal/domain"
)

// FeeRate is the estimated cost of selling on a platform: a percentage of the
// sale price plus a flat amount.
type FeeRate struct {
	Percentage decimal.Decimal
	Flat       decimal.Decimal
}

// FeeModel estimates the fees consumed by a buy/sell platform pairing. Rates
// are injected configuration, never hard-coded: every platform must carry a
// sell-side rate, and specific directed pairs may override it.
type FeeModel struct {
	sellRates     map[domain.Platform]FeeRate
	pairOverrides map[domain.PlatformPair]FeeRate
}

// NewFeeModel builds a FeeModel from per-platform sell rates and optional
// per-pair overrides. Every known platform must have a rate; a missing entry
// is a ConfigurationError because fee settings affect money and are never
// silently defaulted.
func NewFeeModel(sellRates map[domain.Platform]FeeRate, pairOverrides map[domain.PlatformPair]FeeRate) (*FeeModel, error) {
	if len(sellRates) == 0 {
		return nil, &domain.ConfigurationError{Section: "fees", Reason: "no sell rates configured"}
	}
	for _, p := range domain.Platforms {
		rate, ok := sellRates[p]
		if !ok {
			return nil, &domain.ConfigurationError{Section: "fees", Reason: "missing sell rate for platform " + string(p)}
		}
		if rate.Percentage.IsNegative() || rate.Flat.IsNegative() {
			return nil, &domain.ConfigurationError{Section: "fees", Reason: "negative fee rate for platform " + string(p)}
		}
	}
	for pair, rate := range pairOverrides {
		if !pair.Buy.Valid() || !pair.Sell.Valid() {
			return nil, &domain.ConfigurationError{Section: "fees", Reason: "override for unknown platform pair " + pair.String()}
		}
		if rate.Percentage.IsNegative() || rate.Flat.IsNegative() {
			return nil, &domain.ConfigurationError{Section: "fees", Reason: "negative fee override for pair " + pair.String()}
		}
	}

	model := &FeeModel{
		sellRates:     make(map[domain.Platform]FeeRate, len(sellRates)),
		pairOverrides: make(map[domain.PlatformPair]FeeRate, len(pairOverrides)),
	}
	for p, r := range sellRates {
		model.sellRates[p] = r
	}
	for pp, r := range pairOverrides {
		model.pairOverrides[pp] = r
	}
	return model, nil
}

// ZeroFees returns a model that charges nothing for any pairing. Useful in
// tests and simulations.
func ZeroFees() *FeeModel {
	rates := make(map[domain.Platform]FeeRate, len(domain.Platforms))
	for _, p := range domain.Platforms {
		rates[p] = FeeRate{}
	}
	m, _ := NewFeeModel(rates, nil)
	return m
}

// Estimate returns the fees for selling at sellPrice across the given pair,
// rounded to currency minor units.
func (m *FeeModel) Estimate(pair domain.PlatformPair, sellPrice decimal.Decimal) decimal.Decimal {
	rate, ok := m.pairOverrides[pair]
	if !ok {
		rate = m.sellRates[pair.Sell]
	}
	return sellPrice.Mul(rate.Percentage).Add(rate.Flat).Round(2)
}
