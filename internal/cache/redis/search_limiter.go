package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cardarb/internal/domain"
)

// SearchLimiter implements domain.SearchLimiter using SETNX with a TTL: the
// first search for a card within the cooldown wins, later ones are refused
// until the key expires. One key per normalized card name.
type SearchLimiter struct {
	rdb *redis.Client
}

// NewSearchLimiter creates a SearchLimiter backed by the given Client.
func NewSearchLimiter(c *Client) *SearchLimiter {
	return &SearchLimiter{rdb: c.Underlying()}
}

func cooldownKey(cardName string) string {
	return "search:cooldown:" + domain.NormalizeCardName(cardName)
}

// Allow reports whether a new search for the card may start now. A permitted
// call consumes the slot for the cooldown duration.
func (sl *SearchLimiter) Allow(ctx context.Context, cardName string, cooldown time.Duration) (bool, error) {
	ok, err := sl.rdb.SetNX(ctx, cooldownKey(cardName), time.Now().UTC().Format(time.RFC3339), cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis: search cooldown %q: %w", cardName, err)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.SearchLimiter = (*SearchLimiter)(nil)
