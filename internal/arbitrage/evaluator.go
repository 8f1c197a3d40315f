package arbitrage

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cardarb/internal/domain"
)

// EvaluatorConfig configures the opportunity evaluator.
type EvaluatorConfig struct {
	// Fees is required. A nil model is a ConfigurationError: fee estimation
	// affects money and must never fall back to an implicit default.
	Fees *FeeModel
	// MinProfitAmount excludes pairings whose profit, while positive, is too
	// small to act on. Zero keeps every profitable pairing.
	MinProfitAmount decimal.Decimal
	Risk            RiskConfig
	// OpportunityTTL sets ExpiresAt relative to evaluation time.
	OpportunityTTL time.Duration
	// Now supplies the reference time for age-based risk terms and for
	// CreatedAt. Defaults to time.Now; tests inject a fixed clock.
	Now func() time.Time
}

// Evaluator turns raw price observations into scored arbitrage opportunities.
// Evaluate is a pure computation over its input
// and is safe for concurrent use.
type Evaluator struct {
	fees      *FeeModel
	minProfit decimal.Decimal
	risk      RiskConfig
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewEvaluator validates the configuration and returns an Evaluator.
func NewEvaluator(cfg EvaluatorConfig, logger *slog.Logger) (*Evaluator, error) {
	if cfg.Fees == nil {
		return nil, &domain.ConfigurationError{Section: "evaluator", Reason: "fee model is required"}
	}
	if cfg.MinProfitAmount.IsNegative() {
		return nil, &domain.ConfigurationError{Section: "evaluator", Reason: "min profit amount must not be negative"}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.OpportunityTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Evaluator{
		fees:      cfg.Fees,
		minProfit: cfg.MinProfitAmount,
		risk:      cfg.Risk.withDefaults(),
		ttl:       ttl,
		now:       now,
		logger:    logger.With(slog.String("component", "evaluator")),
	}, nil
}

// Evaluate computes every viable buy/sell pairing across the given
// observations. Malformed records are excluded and reported as diagnostics;
// one bad record never drops the rest of the batch. Completed sales are kept
// as sell-side price evidence but are not buyable.
func (e *Evaluator) Evaluate(observations []domain.PriceObservation) ([]domain.ArbitrageOpportunity, []domain.Diagnostic) {
	now := e.now()

	var diags []domain.Diagnostic
	groups := make(map[string][]domain.PriceObservation)
	for i, obs := range observations {
		if verr := obs.Validate(); verr != nil {
			diags = append(diags, domain.Diagnostic{
				Record: i,
				Field:  verr.Field,
				Reason: verr.Reason,
			})
			continue
		}
		key := obs.NormalizedCard()
		groups[key] = append(groups[key], obs)
	}

	// Sorted card iteration keeps output order reproducible across calls.
	cards := make([]string, 0, len(groups))
	for card := range groups {
		cards = append(cards, card)
	}
	sort.Strings(cards)

	var opps []domain.ArbitrageOpportunity
	for _, card := range cards {
		opps = append(opps, e.evaluateCard(groups[card], now)...)
	}

	if len(diags) > 0 {
		e.logger.Warn("excluded malformed observations",
			slog.Int("excluded", len(diags)),
			slog.Int("total", len(observations)),
		)
	}
	return opps, diags
}

// evaluateCard pairs observations within one card group. Observations are
// assumed valid and share a normalized card name.
func (e *Evaluator) evaluateCard(group []domain.PriceObservation, now time.Time) []domain.ArbitrageOpportunity {
	stats := groupStats(group)

	var opps []domain.ArbitrageOpportunity
	for i, buy := range group {
		if buy.Sold {
			continue // completed sales cannot be bought
		}
		for j, sell := range group {
			if i == j {
				continue
			}
			if buy.Platform == sell.Platform && buy.Condition == sell.Condition {
				continue
			}

			pair := domain.PlatformPair{Buy: buy.Platform, Sell: sell.Platform}
			fees := e.fees.Estimate(pair, sell.Price)
			profit := sell.Price.Sub(buy.Price).Sub(fees)
			if !profit.IsPositive() || profit.LessThan(e.minProfit) {
				continue
			}
			margin := profit.Div(buy.Price)

			buyStats := stats[sideKey{buy.Platform, buy.Condition}]
			sellStats := stats[sideKey{sell.Platform, sell.Condition}]

			risk := riskScore(e.risk, buy, sell, buyStats.count, sellStats.count, margin.InexactFloat64(), now)
			confidence := confidenceLevel(buyStats, sellStats)

			opps = append(opps, domain.ArbitrageOpportunity{
				ID:              uuid.NewString(),
				CardName:        buy.CardName,
				BuyPlatform:     buy.Platform,
				SellPlatform:    sell.Platform,
				BuyPrice:        buy.Price,
				SellPrice:       sell.Price,
				BuyCondition:    buy.Condition,
				SellCondition:   sell.Condition,
				EstimatedFees:   fees,
				ProfitAmount:    profit,
				ProfitMargin:    margin,
				RiskScore:       risk,
				ConfidenceLevel: confidence,
				BuyURL:          buy.ListingURL,
				CreatedAt:       now,
				ExpiresAt:       now.Add(e.ttl),
			})
		}
	}
	return dedupeBestPerPair(opps)
}

// dedupeBestPerPair keeps one opportunity per directed platform pair: several
// listings per side multiply into near-duplicates of the same trade, so only
// the best-supported pairing survives. Output preserves first-seen pair order.
func dedupeBestPerPair(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	if len(opps) < 2 {
		return opps
	}

	best := make(map[domain.PlatformPair]int, len(opps))
	var order []domain.PlatformPair
	for i, opp := range opps {
		pair := domain.PlatformPair{Buy: opp.BuyPlatform, Sell: opp.SellPlatform}
		cur, ok := best[pair]
		if !ok {
			best[pair] = i
			order = append(order, pair)
			continue
		}
		if betterSupported(opp, opps[cur]) {
			best[pair] = i
		}
	}

	out := make([]domain.ArbitrageOpportunity, 0, len(order))
	for _, pair := range order {
		out = append(out, opps[best[pair]])
	}
	return out
}

// betterSupported orders candidates for the same directed pair: higher
// confidence wins, profit breaks ties.
func betterSupported(a, b domain.ArbitrageOpportunity) bool {
	if a.ConfidenceLevel != b.ConfidenceLevel {
		return a.ConfidenceLevel > b.ConfidenceLevel
	}
	return a.ProfitAmount.GreaterThan(b.ProfitAmount)
}

// sideKey identifies the corroborating observation set for one side of a
// pairing.
type sideKey struct {
	platform  domain.Platform
	condition domain.Condition
}

// groupStats computes per-(platform, condition) sample count, mean, and
// standard deviation of prices within a card group.
func groupStats(group []domain.PriceObservation) map[sideKey]sideStats {
	prices := make(map[sideKey][]float64)
	for _, obs := range group {
		k := sideKey{obs.Platform, obs.Condition}
		prices[k] = append(prices[k], obs.Price.InexactFloat64())
	}

	stats := make(map[sideKey]sideStats, len(prices))
	for k, ps := range prices {
		var sum float64
		for _, p := range ps {
			sum += p
		}
		mean := sum / float64(len(ps))

		var variance float64
		if len(ps) > 1 {
			for _, p := range ps {
				d := p - mean
				variance += d * d
			}
			variance /= float64(len(ps))
		}

		stats[k] = sideStats{
			count:  len(ps),
			mean:   mean,
			stdDev: math.Sqrt(variance),
		}
	}
	return stats
}

// String implements fmt.Stringer for debug logging of side keys.
func (k sideKey) String() string {
	return fmt.Sprintf("%s/%s", k.platform, k.condition)
}
