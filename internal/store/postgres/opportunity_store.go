package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, card_name, buy_platform, sell_platform,
	buy_price, sell_price, buy_condition, sell_condition,
	estimated_fees, profit_amount, profit_margin,
	risk_score, confidence_level, buy_url, created_at, expires_at`

// InsertBatch stores a batch of opportunities in one round trip and returns
// the number of rows written. Re-inserting an existing ID is a no-op.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) (int, error) {
	if len(opps) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO opportunities (
			id, card_name, buy_platform, sell_platform,
			buy_price, sell_price, buy_condition, sell_condition,
			estimated_fees, profit_amount, profit_margin,
			risk_score, confidence_level, buy_url, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15, $16
		) ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(query,
			opp.ID, opp.CardName, string(opp.BuyPlatform), string(opp.SellPlatform),
			opp.BuyPrice, opp.SellPrice, opp.BuyCondition.String(), opp.SellCondition.String(),
			opp.EstimatedFees, opp.ProfitAmount, opp.ProfitMargin,
			opp.RiskScore, opp.ConfidenceLevel, opp.BuyURL, opp.CreatedAt, opp.ExpiresAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range opps {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("postgres: insert opportunity %s: %w", opps[i].ID, err)
		}
	}
	return len(opps), nil
}

// GetByID returns one opportunity or domain.ErrNotFound.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE id = $1`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	defer rows.Close()

	opps, err := scanOpportunities(rows)
	if err != nil {
		return domain.ArbitrageOpportunity{}, err
	}
	if len(opps) == 0 {
		return domain.ArbitrageOpportunity{}, domain.ErrNotFound
	}
	return opps[0], nil
}

// ListExpired returns up to limit opportunities whose expiry is at or before
// the cutoff, oldest expiry first.
func (s *OpportunityStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + `
		FROM opportunities
		WHERE expires_at <= $1
		ORDER BY expires_at ASC`
	args := []any{cutoff}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// DeleteByIDs removes the opportunities with the given ids and returns the
// number of rows deleted.
func (s *OpportunityStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities by id: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]domain.ArbitrageOpportunity, error) {
	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		var buyPlatform, sellPlatform, buyCondition, sellCondition string

		if err := rows.Scan(
			&opp.ID, &opp.CardName, &buyPlatform, &sellPlatform,
			&opp.BuyPrice, &opp.SellPrice, &buyCondition, &sellCondition,
			&opp.EstimatedFees, &opp.ProfitAmount, &opp.ProfitMargin,
			&opp.RiskScore, &opp.ConfidenceLevel, &opp.BuyURL, &opp.CreatedAt, &opp.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.BuyPlatform = domain.ParsePlatform(buyPlatform)
		opp.SellPlatform = domain.ParsePlatform(sellPlatform)

		var err error
		if opp.BuyCondition, err = domain.ParseCondition(buyCondition); err != nil {
			return nil, fmt.Errorf("postgres: opportunity buy condition: %w", err)
		}
		if opp.SellCondition, err = domain.ParseCondition(sellCondition); err != nil {
			return nil, fmt.Errorf("postgres: opportunity sell condition: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}
