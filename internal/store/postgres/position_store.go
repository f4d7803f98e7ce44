package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

var _ domain.PositionStore = (*PositionStore)(nil)

const positionCols = `user_id, market_id, outcome, shares, average_price,
	total_invested, created_at, last_updated, active, claimed, winnings_claimed`

// Upsert inserts or overwrites the position keyed by (user, market, outcome).
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (` + positionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, market_id, outcome) DO UPDATE SET
			shares           = EXCLUDED.shares,
			average_price    = EXCLUDED.average_price,
			total_invested   = EXCLUDED.total_invested,
			last_updated     = EXCLUDED.last_updated,
			active           = EXCLUDED.active,
			claimed          = EXCLUDED.claimed,
			winnings_claimed = EXCLUDED.winnings_claimed`

	_, err := db(ctx, s.pool).Exec(ctx, query,
		p.User, p.MarketID, string(p.Outcome),
		p.Shares, p.AveragePrice, p.TotalInvested,
		p.CreatedAt, p.LastUpdated, p.Active, p.Claimed, p.WinningsClaimed,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s/%s/%s: %w", p.User, p.MarketID, p.Outcome, err)
	}
	return nil
}

// Get retrieves a position by its composite key.
func (s *PositionStore) Get(ctx context.Context, user, marketID string, outcome domain.Outcome) (domain.Position, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions
		 WHERE user_id = $1 AND market_id = $2 AND outcome = $3`,
		user, marketID, string(outcome))

	p, err := scanPosition(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s/%s: %w", user, marketID, outcome, err)
	}
	return p, nil
}

// ListByMarket returns every position on a market.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+positionCols+` FROM positions WHERE market_id = $1 ORDER BY created_at`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for market %s: %w", marketID, err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

// ListByUser returns a user's positions across markets, newest first.
func (s *PositionStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionCols + ` FROM positions WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{user}
	query, args = paginate(query, args, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for user %s: %w", user, err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

// CountActive counts a market's active (unclaimed, non-empty) positions.
func (s *PositionStore) CountActive(ctx context.Context, marketID string) (int64, error) {
	var count int64
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE market_id = $1 AND active`,
		marketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active positions %s: %w", marketID, err)
	}
	return count, nil
}

// SumWinningShares totals the shares held on one outcome of a market. The
// sum includes already-claimed positions so the payout denominator stays
// fixed across the whole claim sequence.
func (s *PositionStore) SumWinningShares(ctx context.Context, marketID string, outcome domain.Outcome) (uint64, error) {
	var sum uint64
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(shares), 0) FROM positions
		 WHERE market_id = $1 AND outcome = $2`,
		marketID, string(outcome)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum winning shares %s/%s: %w", marketID, outcome, err)
	}
	return sum, nil
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var outcome string

	err := row.Scan(
		&p.User, &p.MarketID, &outcome,
		&p.Shares, &p.AveragePrice, &p.TotalInvested,
		&p.CreatedAt, &p.LastUpdated, &p.Active, &p.Claimed, &p.WinningsClaimed,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Outcome = domain.Outcome(outcome)
	return p, nil
}

func scanPositions(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: position rows: %w", err)
	}
	return positions, nil
}
