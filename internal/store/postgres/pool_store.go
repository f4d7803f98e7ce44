package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

var _ domain.PoolStore = (*PoolStore)(nil)

const poolCols = `market_id, yes_reserves, no_reserves, total_liquidity,
	fee_rate_bps, accumulated_fees, active, created_at`

// Create inserts a new pool; one pool exists per market.
func (s *PoolStore) Create(ctx context.Context, p domain.LiquidityPool) error {
	const query = `
		INSERT INTO pools (` + poolCols + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := db(ctx, s.pool).Exec(ctx, query,
		p.MarketID, p.YesReserves, p.NoReserves, p.TotalLiquidity,
		p.FeeRateBps, p.AccumulatedFees, p.Active, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres: create pool %s: %w", p.MarketID, err)
	}
	return nil
}

// Update overwrites an existing pool row.
func (s *PoolStore) Update(ctx context.Context, p domain.LiquidityPool) error {
	const query = `
		UPDATE pools SET
			yes_reserves = $2, no_reserves = $3, total_liquidity = $4,
			fee_rate_bps = $5, accumulated_fees = $6, active = $7,
			updated_at = NOW()
		WHERE market_id = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, query,
		p.MarketID, p.YesReserves, p.NoReserves, p.TotalLiquidity,
		p.FeeRateBps, p.AccumulatedFees, p.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: update pool %s: %w", p.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByMarket retrieves the pool for a market.
func (s *PoolStore) GetByMarket(ctx context.Context, marketID string) (domain.LiquidityPool, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+poolCols+` FROM pools WHERE market_id = $1`, marketID)

	var p domain.LiquidityPool
	err := row.Scan(
		&p.MarketID, &p.YesReserves, &p.NoReserves, &p.TotalLiquidity,
		&p.FeeRateBps, &p.AccumulatedFees, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.LiquidityPool{}, domain.ErrNotFound
		}
		return domain.LiquidityPool{}, fmt.Errorf("postgres: get pool %s: %w", marketID, err)
	}
	return p, nil
}
