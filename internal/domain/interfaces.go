package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market records.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Update(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
}

// PoolStore persists liquidity pools, one per market.
type PoolStore interface {
	Create(ctx context.Context, p LiquidityPool) error
	Update(ctx context.Context, p LiquidityPool) error
	GetByMarket(ctx context.Context, marketID string) (LiquidityPool, error)
}

// PositionStore persists user positions keyed by (user, market, outcome).
type PositionStore interface {
	Upsert(ctx context.Context, p Position) error
	Get(ctx context.Context, user, marketID string, outcome Outcome) (Position, error)
	ListByMarket(ctx context.Context, marketID string) ([]Position, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]Position, error)
	CountActive(ctx context.Context, marketID string) (int64, error)
	SumWinningShares(ctx context.Context, marketID string, outcome Outcome) (uint64, error)
}

// BetStore persists the append-only bet audit trail.
type BetStore interface {
	Create(ctx context.Context, b Bet) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Bet, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]Bet, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Vault is the funds-transfer collaborator. Transfer atomically debits the
// source account and credits the destination, or has no effect at all; it
// returns ErrInsufficientVaultBalance when the source cannot cover amount.
type Vault interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
	Deposit(ctx context.Context, account string, amount uint64) error
}

// Atomic runs fn inside a single storage transaction. Store and vault calls
// made with the context fn receives join that transaction, so all of them
// commit together or none do. Nested calls join the enclosing transaction.
type Atomic interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock is the current-time collaborator. Operations receive time from
// here, never from the environment, so hosts and tests control it.
type Clock interface {
	Now() time.Time
}

// PriceCache caches the latest pool price per market.
type PriceCache interface {
	SetPrice(ctx context.Context, marketID string, price uint64, ts time.Time) error
	GetPrice(ctx context.Context, marketID string) (uint64, time.Time, error)
	GetPrices(ctx context.Context, marketIDs []string) (map[string]uint64, error)
}

// MarketCache provides fast market snapshot lookups.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// LockManager serializes mutating operations per market. The host contract
// (one state-mutating operation at a time per market) is enforced by
// acquiring the market's lock around every such operation.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage is one durable stream entry with its broker-assigned ID.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus carries event records to observers over pub/sub channels and
// durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter throttles requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter stores archive objects.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// VaultAccount returns the ledger account that escrows a market's funds.
func VaultAccount(marketID string) string {
	return "vault:" + marketID
}
