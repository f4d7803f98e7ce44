package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// querier is the query surface shared by *pgxpool.Pool and pgx.Tx. Store
// methods run against it so the same code works inside and outside a
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txContextKey struct{}

// txFrom returns the transaction carried by ctx, if any.
func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// db returns the transaction carried by ctx, or the pool when none is.
func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return pool
}

// Atomic implements domain.Atomic over a connection pool. InTx opens a
// transaction and carries it down through the context, so every store call
// made inside fn joins it.
type Atomic struct {
	pool *pgxpool.Pool
}

// NewAtomic creates an Atomic backed by the given connection pool.
func NewAtomic(pool *pgxpool.Pool) *Atomic {
	return &Atomic{pool: pool}
}

var _ domain.Atomic = (*Atomic)(nil)

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. A call made while already inside a transaction
// joins it instead of opening a second one.
func (a *Atomic) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	return pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}
