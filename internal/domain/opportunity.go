package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is a profitable buy-low/sell-high pairing derived from
// two price observations of the same card. Opportunities are computed values:
// they have no identity beyond their content and are recomputed, never updated
// in place. ProfitMargin is always recomputed from ProfitAmount and BuyPrice;
// it is never independently supplied.
type ArbitrageOpportunity struct {
	ID              string          `json:"id"`
	CardName        string          `json:"card_name"`
	BuyPlatform     Platform        `json:"buy_platform"`
	SellPlatform    Platform        `json:"sell_platform"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	BuyCondition    Condition       `json:"buy_condition"`
	SellCondition   Condition       `json:"sell_condition"`
	EstimatedFees   decimal.Decimal `json:"estimated_fees"`
	ProfitAmount    decimal.Decimal `json:"profit_amount"`
	ProfitMargin    decimal.Decimal `json:"profit_margin"`
	RiskScore       float64         `json:"risk_score"`
	ConfidenceLevel float64         `json:"confidence_level"`
	BuyURL          string          `json:"buy_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// Pair returns the directed platform pair of the opportunity.
func (o ArbitrageOpportunity) Pair() PlatformPair {
	return PlatformPair{Buy: o.BuyPlatform, Sell: o.SellPlatform}
}

// SortKey selects the metric an opportunity page is ordered by.
type SortKey string

const (
	SortByProfitMargin SortKey = "profit_margin"
	SortByProfitAmount SortKey = "profit_amount"
	SortByConfidence   SortKey = "confidence_level"
)

// OpportunityFilter is the caller-supplied ranking request. Filtering is a
// conjunction of its threshold fields; PlatformPair, when set, requires an
// exact directed match.
type OpportunityFilter struct {
	MinProfitMargin decimal.Decimal
	MaxRiskScore    float64
	PlatformPair    *PlatformPair
	SortBy          SortKey
	Limit           int
}

// Validate checks filter bounds. SortBy defaults to profit_margin upstream;
// here an unset value is rejected so callers apply their defaults explicitly.
func (f OpportunityFilter) Validate() error {
	if f.MinProfitMargin.IsNegative() || f.MinProfitMargin.GreaterThan(decimal.NewFromInt(1)) {
		return &ValidationError{Field: "min_profit_margin", Reason: "must be within [0,1]"}
	}
	if f.MaxRiskScore < 0 {
		return &ValidationError{Field: "max_risk_score", Reason: "must not be negative"}
	}
	switch f.SortBy {
	case SortByProfitMargin, SortByProfitAmount, SortByConfidence:
	default:
		return &ValidationError{Field: "sort_by", Reason: fmt.Sprintf("unknown sort key %q", f.SortBy)}
	}
	if f.Limit <= 0 {
		return &ValidationError{Field: "limit", Reason: "must be greater than zero"}
	}
	return nil
}
