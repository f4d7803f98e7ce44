package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

const marketCols = `id, creator, title, description, category,
	created_at, end_time, resolved_at, status, winning_outcome,
	total_bets, total_volume, yes_volume, no_volume, yes_bets, no_bets,
	yes_odds, no_odds, min_bet, max_bet, total_pool, total_claimed`

// Create inserts a new market. A duplicate ID fails with ErrAlreadyExists.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketCols + `, updated_at)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, NOW()
		)`

	_, err := db(ctx, s.pool).Exec(ctx, query, marketArgs(m)...)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// Update overwrites an existing market row.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			creator = $2, title = $3, description = $4, category = $5,
			created_at = $6, end_time = $7, resolved_at = $8,
			status = $9, winning_outcome = $10,
			total_bets = $11, total_volume = $12,
			yes_volume = $13, no_volume = $14,
			yes_bets = $15, no_bets = $16,
			yes_odds = $17, no_odds = $18,
			min_bet = $19, max_bet = $20,
			total_pool = $21, total_claimed = $22,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// ListByStatus returns markets in the given lifecycle state, newest first.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE status = $1 ORDER BY created_at DESC`
	args := []any{string(status)}
	query, args = paginate(query, args, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets by status: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

// List returns all markets, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY created_at DESC`
	var args []any
	query, args = paginate(query, args, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func marketArgs(m domain.Market) []any {
	var winning *string
	if m.WinningOutcome != nil {
		w := string(*m.WinningOutcome)
		winning = &w
	}
	return []any{
		m.ID, m.Creator, m.Title, m.Description, m.Category,
		m.CreatedAt, m.EndTime, m.ResolvedAt, string(m.Status), winning,
		m.TotalBets, m.TotalVolume, m.YesVolume, m.NoVolume, m.YesBets, m.NoBets,
		m.YesOdds, m.NoOdds, m.MinBet, m.MaxBet, m.TotalPool, m.TotalClaimed,
	}
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	var winning *string

	err := row.Scan(
		&m.ID, &m.Creator, &m.Title, &m.Description, &m.Category,
		&m.CreatedAt, &m.EndTime, &m.ResolvedAt, &status, &winning,
		&m.TotalBets, &m.TotalVolume, &m.YesVolume, &m.NoVolume, &m.YesBets, &m.NoBets,
		&m.YesOdds, &m.NoOdds, &m.MinBet, &m.MaxBet, &m.TotalPool, &m.TotalClaimed,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	if winning != nil {
		o := domain.Outcome(*winning)
		m.WinningOutcome = &o
	}
	return m, nil
}

func scanMarkets(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return markets, nil
}

// paginate appends LIMIT and OFFSET clauses for the given options.
func paginate(query string, args []any, opts domain.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
