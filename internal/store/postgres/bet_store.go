package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. Bets are append
// only; there is no update path.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

var _ domain.BetStore = (*BetStore)(nil)

const betCols = `id, market_id, bettor, amount, outcome, shares, price, placed_at`

// Create appends a bet record.
func (s *BetStore) Create(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (` + betCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db(ctx, s.pool).Exec(ctx, query,
		b.ID, b.MarketID, b.Bettor, b.Amount, string(b.Outcome),
		b.Shares, b.Price, b.PlacedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres: create bet %s: %w", b.ID, err)
	}
	return nil
}

// ListByMarket returns a market's bets, newest first.
func (s *BetStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE market_id = $1 ORDER BY placed_at DESC`
	args := []any{marketID}
	query, args = paginate(query, args, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %s: %w", marketID, err)
	}
	defer rows.Close()
	return scanBets(rows)
}

// ListByUser returns a user's bets across markets, newest first.
func (s *BetStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE bettor = $1 ORDER BY placed_at DESC`
	args := []any{user}
	query, args = paginate(query, args, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for user %s: %w", user, err)
	}
	defer rows.Close()
	return scanBets(rows)
}

func scanBets(rows pgx.Rows) ([]domain.Bet, error) {
	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var outcome string
		if err := rows.Scan(
			&b.ID, &b.MarketID, &b.Bettor, &b.Amount, &outcome,
			&b.Shares, &b.Price, &b.PlacedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		b.Outcome = domain.Outcome(outcome)
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bet rows: %w", err)
	}
	return bets, nil
}
