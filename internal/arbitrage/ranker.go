package arbitrage

import (
	"sort"
	"strings"

	"cardarb/internal/domain"
)

// Rank filters the given opportunities by the filter conjunction, orders them
// descending by the requested sort key, and truncates to the filter limit.
// Truncation happens after the full sort so the top-N by the requested metric
// is correct regardless of input order.
//
// Ties are broken by descending confidence level, then by ascending card name,
// which makes the ordering a deterministic total order: identical inputs
// always produce identical pages.
func Rank(opps []domain.ArbitrageOpportunity, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	kept := make([]domain.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if opp.ProfitMargin.LessThan(filter.MinProfitMargin) {
			continue
		}
		if opp.RiskScore > filter.MaxRiskScore {
			continue
		}
		if filter.PlatformPair != nil && opp.Pair() != *filter.PlatformPair {
			continue
		}
		kept = append(kept, opp)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return rankLess(kept[i], kept[j], filter.SortBy)
	})

	if len(kept) > filter.Limit {
		kept = kept[:filter.Limit]
	}
	return kept, nil
}

// rankLess orders i before j when i ranks higher for the given key.
func rankLess(a, b domain.ArbitrageOpportunity, key domain.SortKey) bool {
	if cmp := compareKey(a, b, key); cmp != 0 {
		return cmp > 0
	}
	if a.ConfidenceLevel != b.ConfidenceLevel {
		return a.ConfidenceLevel > b.ConfidenceLevel
	}
	return strings.Compare(domain.NormalizeCardName(a.CardName), domain.NormalizeCardName(b.CardName)) < 0
}

// compareKey returns >0 when a beats b on the sort key, <0 when it loses, and
// 0 on a tie.
func compareKey(a, b domain.ArbitrageOpportunity, key domain.SortKey) int {
	switch key {
	case domain.SortByProfitAmount:
		return a.ProfitAmount.Cmp(b.ProfitAmount)
	case domain.SortByConfidence:
		switch {
		case a.ConfidenceLevel > b.ConfidenceLevel:
			return 1
		case a.ConfidenceLevel < b.ConfidenceLevel:
			return -1
		}
		return 0
	default: // domain.SortByProfitMargin
		return a.ProfitMargin.Cmp(b.ProfitMargin)
	}
}
