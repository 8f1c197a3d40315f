package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardarb/internal/domain"
)

// ObservationStore implements domain.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *pgxpool.Pool
}

// NewObservationStore creates an ObservationStore backed by the given pool.
func NewObservationStore(pool *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

const obsSelectCols = `card_name, platform, condition, price, listing_url, sold, observed_at`

// InsertBatch stores a batch of observations in one round trip and returns
// the number of rows written.
func (s *ObservationStore) InsertBatch(ctx context.Context, obs []domain.PriceObservation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO price_observations (
			card_name, card_key, platform, condition, price, listing_url, sold, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query,
			o.CardName, o.NormalizedCard(), string(o.Platform), o.Condition.String(),
			o.Price, o.ListingURL, o.Sold, o.ObservedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range obs {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("postgres: insert observation %d: %w", i, err)
		}
	}
	return len(obs), nil
}

// ListByCard returns observations for one card not older than since, newest
// first.
func (s *ObservationStore) ListByCard(ctx context.Context, cardName string, since time.Time) ([]domain.PriceObservation, error) {
	query := `SELECT ` + obsSelectCols + `
		FROM price_observations
		WHERE card_key = $1 AND observed_at >= $2
		ORDER BY observed_at DESC`

	rows, err := s.pool.Query(ctx, query, domain.NormalizeCardName(cardName), since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations for %q: %w", cardName, err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// ListSince returns all observations not older than since, newest first.
func (s *ObservationStore) ListSince(ctx context.Context, since time.Time) ([]domain.PriceObservation, error) {
	query := `SELECT ` + obsSelectCols + `
		FROM price_observations
		WHERE observed_at >= $1
		ORDER BY observed_at DESC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations since %s: %w", since, err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows pgx.Rows) ([]domain.PriceObservation, error) {
	var obs []domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		var platform, condition string

		if err := rows.Scan(
			&o.CardName, &platform, &condition, &o.Price, &o.ListingURL, &o.Sold, &o.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan observation: %w", err)
		}
		o.Platform = domain.ParsePlatform(platform)
		parsed, err := domain.ParseCondition(condition)
		if err != nil {
			return nil, fmt.Errorf("postgres: observation condition: %w", err)
		}
		o.Condition = parsed
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate observations: %w", err)
	}
	return obs, nil
}
