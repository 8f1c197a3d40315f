package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"time"

	"github.com/redis/go-redis/v9"

	"cardarb/internal/domain"
)

// OpportunityCache implements domain.OpportunityCache. The latest ranked page
// per card is stored as one JSON blob at "opps:{card}" with a TTL, so
// dashboard polls between scans never touch Postgres.
type OpportunityCache struct {
	rdb *redis.Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{rdb: c.Underlying()}
}

func oppsKey(cardName string) string {
	return "opps:" + domain.NormalizeCardName(cardName)
}

// SetLatest stores the ranked opportunities for a card.
func (oc *OpportunityCache) SetLatest(ctx context.Context, cardName string, opps []domain.ArbitrageOpportunity, ttl time.Duration) error {
	data, err := json.Marshal(opps)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunities for %q: %w", cardName, err)
	}
	if err := oc.rdb.Set(ctx, oppsKey(cardName), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set opportunities for %q: %w", cardName, err)
	}
	return nil
}

// GetLatest returns the cached opportunities for a card, or domain.ErrNotFound
// when no scan has run within the TTL.
func (oc *OpportunityCache) GetLatest(ctx context.Context, cardName string) ([]domain.ArbitrageOpportunity, error) {
	data, err := oc.rdb.Get(ctx, oppsKey(cardName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get opportunities for %q: %w", cardName, err)
	}

	var opps []domain.ArbitrageOpportunity
	if err := json.Unmarshal(data, &opps); err != nil {
		return nil, fmt.Errorf("redis: unmarshal opportunities for %q: %w", cardName, err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
