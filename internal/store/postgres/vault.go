package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// Vault implements domain.Vault as a PostgreSQL account ledger. Transfers
// run in a single transaction with a conditional debit, so a transfer that
// would overdraw the source account applies nothing at all.
type Vault struct {
	pool *pgxpool.Pool
}

// NewVault creates a Vault backed by the given connection pool.
func NewVault(pool *pgxpool.Pool) *Vault {
	return &Vault{pool: pool}
}

var _ domain.Vault = (*Vault)(nil)

// Transfer atomically moves amount from one account to another. It fails
// with ErrInsufficientVaultBalance when the source cannot cover the amount.
// Inside an Atomic.InTx block it joins the enclosing transaction, so the
// transfer commits or rolls back together with the record writes around it.
func (v *Vault) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if amount == 0 {
		return domain.ErrInvalidAmount
	}

	if tx, ok := txFrom(ctx); ok {
		return transfer(ctx, tx, from, to, amount)
	}
	return pgx.BeginTxFunc(ctx, v.pool, pgx.TxOptions{IsoLevel: pgx.Serializable},
		func(tx pgx.Tx) error {
			return transfer(ctx, tx, from, to, amount)
		})
}

func transfer(ctx context.Context, q querier, from, to string, amount uint64) error {
	// Conditional debit: the WHERE clause makes overdraw impossible
	// without a prior read.
	tag, err := q.Exec(ctx,
		`UPDATE vault_accounts SET balance = balance - $2, updated_at = NOW()
		 WHERE id = $1 AND balance >= $2`,
		from, amount)
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientVaultBalance
	}

	if _, err := q.Exec(ctx,
		`INSERT INTO vault_accounts (id, balance) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET
			balance = vault_accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`,
		to, amount); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", to, err)
	}
	return nil
}

// Balance returns an account's balance; an unknown account reads as zero.
func (v *Vault) Balance(ctx context.Context, account string) (uint64, error) {
	var balance uint64
	err := db(ctx, v.pool).QueryRow(ctx,
		`SELECT balance FROM vault_accounts WHERE id = $1`, account).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: balance %s: %w", account, err)
	}
	return balance, nil
}

// Deposit credits an account, creating it on first use.
func (v *Vault) Deposit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	if _, err := db(ctx, v.pool).Exec(ctx,
		`INSERT INTO vault_accounts (id, balance) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET
			balance = vault_accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`,
		account, amount); err != nil {
		return fmt.Errorf("postgres: deposit %s: %w", account, err)
	}
	return nil
}
