package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// FetchOptions bound an observation fetch against a marketplace.
type FetchOptions struct {
	MaxPrice    decimal.Decimal // zero means no cap
	IncludeSold bool
	Limit       int
}

// SearchRequest is an on-demand scan request for one card.
type SearchRequest struct {
	CardName        string          `json:"card_name"`
	MaxPrice        decimal.Decimal `json:"max_price"`
	IncludeSoldData bool            `json:"include_sold_data"`
	Priority        string          `json:"priority"`
}

// ObservationSource supplies price observation batches for one marketplace.
// Implementations live in internal/market; a failed upstream returns an error
// wrapping ErrUpstreamUnavailable so callers can degrade instead of aborting.
type ObservationSource interface {
	Platform() Platform
	Fetch(ctx context.Context, cardName string, opts FetchOptions) ([]PriceObservation, error)
}

// ObservationStore persists raw price observations.
type ObservationStore interface {
	InsertBatch(ctx context.Context, obs []PriceObservation) (int, error)
	ListByCard(ctx context.Context, cardName string, since time.Time) ([]PriceObservation, error)
	ListSince(ctx context.Context, since time.Time) ([]PriceObservation, error)
}

// OpportunityStore persists computed opportunities for dashboard detail views
// and archival; the evaluator itself never writes.
type OpportunityStore interface {
	InsertBatch(ctx context.Context, opps []ArbitrageOpportunity) (int, error)
	GetByID(ctx context.Context, id string) (ArbitrageOpportunity, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]ArbitrageOpportunity, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// OpportunityCache holds the latest ranked page per card for cheap dashboard
// polls between scans.
type OpportunityCache interface {
	SetLatest(ctx context.Context, cardName string, opps []ArbitrageOpportunity, ttl time.Duration) error
	GetLatest(ctx context.Context, cardName string) ([]ArbitrageOpportunity, error)
}

// SearchLimiter enforces a per-card search cooldown.
type SearchLimiter interface {
	// Allow reports whether a new search for the card may start now. A
	// permitted call consumes the slot for the cooldown duration.
	Allow(ctx context.Context, cardName string, cooldown time.Duration) (bool, error)
}

// ScanLocker serializes scans of a single card across processes. Acquire
// returns ErrLockHeld when another scan owns the card.
type ScanLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SampleCollector pulls raw operational counters for one resource kind.
// A collector failure must surface as an error, never a fabricated sample;
// the aggregator degrades missing resources to unknown.
type SampleCollector interface {
	Kind() ResourceKind
	Collect(ctx context.Context) ([]ComponentHealthSample, error)
}

// BlobWriter stores an object in cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, body io.Reader, contentType string) error
}
