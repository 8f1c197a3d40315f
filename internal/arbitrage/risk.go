package arbitrage

import (
	"math"
	"time"

	"cardarb/internal/domain"
)

// RiskConfig parameterizes the risk score. The weights are policy, not fixed
// constants: they come from configuration so operators can tune them without
// a rebuild. Zero values are replaced by defaults.
type RiskConfig struct {
	// ConditionGapWeight is added per tier when the buy-side condition is
	// worse than the sell-side condition.
	ConditionGapWeight float64
	// AgeWeightPerHour is added per hour of observation age, capped at AgeCap.
	// The older of the two observations drives the term.
	AgeWeightPerHour float64
	AgeCap           float64
	// SparseSampleWeight divided by the corroborating sample count is added
	// per side, so thinly supported sides raise risk.
	SparseSampleWeight float64
	// HighMarginPenalty applies above HighMarginThreshold; ExtremeMarginPenalty
	// replaces it above ExtremeMarginThreshold. Too-good-to-be-true margins
	// usually mean a mispriced or misdescribed listing.
	HighMarginThreshold    float64
	HighMarginPenalty      float64
	ExtremeMarginThreshold float64
	ExtremeMarginPenalty   float64
}

const (
	riskBase = 1.0
	riskCap  = 5.0
)

func (c RiskConfig) withDefaults() RiskConfig {
	if c.ConditionGapWeight == 0 {
		c.ConditionGapWeight = 0.5
	}
	if c.AgeWeightPerHour == 0 {
		c.AgeWeightPerHour = 0.05
	}
	if c.AgeCap == 0 {
		c.AgeCap = 1.0
	}
	if c.SparseSampleWeight == 0 {
		c.SparseSampleWeight = 0.3
	}
	if c.HighMarginThreshold == 0 {
		c.HighMarginThreshold = 0.5
	}
	if c.HighMarginPenalty == 0 {
		c.HighMarginPenalty = 0.4
	}
	if c.ExtremeMarginThreshold == 0 {
		c.ExtremeMarginThreshold = 1.0
	}
	if c.ExtremeMarginPenalty == 0 {
		c.ExtremeMarginPenalty = 0.8
	}
	return c
}

// riskScore is deterministic given identical inputs: no randomness, and the
// reference time is supplied by the caller. It is monotonic in condition
// mismatch magnitude, observation age, sparse sample support, and outlier
// margin. The result is bounded to [riskBase, riskCap].
func riskScore(cfg RiskConfig, buy, sell domain.PriceObservation, buyCount, sellCount int, margin float64, now time.Time) float64 {
	score := riskBase

	if gap := sell.Condition.Tier() - buy.Condition.Tier(); gap > 0 {
		score += float64(gap) * cfg.ConditionGapWeight
	}

	age := now.Sub(buy.ObservedAt)
	if sellAge := now.Sub(sell.ObservedAt); sellAge > age {
		age = sellAge
	}
	if age > 0 {
		score += math.Min(age.Hours()*cfg.AgeWeightPerHour, cfg.AgeCap)
	}

	if buyCount > 0 {
		score += cfg.SparseSampleWeight / float64(buyCount)
	}
	if sellCount > 0 {
		score += cfg.SparseSampleWeight / float64(sellCount)
	}

	switch {
	case margin > cfg.ExtremeMarginThreshold:
		score += cfg.ExtremeMarginPenalty
	case margin > cfg.HighMarginThreshold:
		score += cfg.HighMarginPenalty
	}

	return math.Min(score, riskCap)
}

// sideStats summarizes the same-platform, same-condition observations backing
// one side of a candidate pairing.
type sideStats struct {
	count  int
	mean   float64
	stdDev float64
}

// confidenceLevel estimates the statistical support behind the price inputs,
// bounded to [0,1]. Each side contributes a sample-count factor n/(n+1) scaled
// down by the coefficient of variation of its corroborating prices; the weaker
// side bounds the result.
func confidenceLevel(buy, sell sideStats) float64 {
	b := sideConfidence(buy)
	s := sideConfidence(sell)
	if s < b {
		return s
	}
	return b
}

func sideConfidence(st sideStats) float64 {
	if st.count <= 0 {
		return 0
	}
	sampleFactor := float64(st.count) / float64(st.count+1)

	dispersion := 0.0
	if st.mean > 0 && st.count > 1 {
		dispersion = math.Min(st.stdDev/st.mean, 1)
	}

	c := sampleFactor * (1 - dispersion)
	return math.Max(0, math.Min(c, 1))
}
