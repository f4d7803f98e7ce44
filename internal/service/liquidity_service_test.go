package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

type liquidityFixture struct {
	*marketFixture
	svc    *LiquidityService
	prices *memPriceCache
}

func newLiquidityFixture(t *testing.T) *liquidityFixture {
	t.Helper()
	mf := newMarketFixture(t)
	f := &liquidityFixture{
		marketFixture: mf,
		prices:        newMemPriceCache(),
	}
	f.svc = NewLiquidityService(
		mf.markets, mf.pools, mf.positions, mf.audit,
		mf.vault, mf.clock, noopLocks{}, f.prices, mf.atomic, testLogger(),
	)
	return f
}

func TestAddLiquidity(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, "alice", 300_000))

	tokens, evt, err := f.svc.AddLiquidity(ctx, "m1", "alice", 200_000)
	require.NoError(t, err)

	// First deposit mints 1:1 and splits evenly.
	assert.Equal(t, uint64(200_000), tokens)
	assert.Equal(t, domain.EventLiquidityAdded, evt.Type)

	pool, err := f.pools.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), pool.YesReserves)
	assert.Equal(t, uint64(100_000), pool.NoReserves)
	assert.Equal(t, uint64(200_000), pool.TotalLiquidity)

	balance, err := f.vault.Balance(ctx, domain.VaultAccount("m1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000), balance)

	// A balanced pool caches the midpoint price.
	price, _, err := f.prices.GetPrice(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), price)
}

func TestAddLiquidityGuards(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()

	_, _, err := f.svc.AddLiquidity(ctx, "m1", "alice", 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientVaultBalance)

	f.clock.Advance(25 * time.Hour)
	_, _, err = f.svc.AddLiquidity(ctx, "m1", "alice", 1000)
	assert.ErrorIs(t, err, domain.ErrMarketExpired)
}

func TestRemoveLiquidity(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, "alice", 200_000))
	_, _, err := f.svc.AddLiquidity(ctx, "m1", "alice", 200_000)
	require.NoError(t, err)

	payout, evt, err := f.svc.RemoveLiquidity(ctx, "m1", "alice", 50_000)
	require.NoError(t, err)

	// A quarter of the tokens returns a quarter of each reserve.
	assert.Equal(t, uint64(50_000), payout)
	assert.Equal(t, domain.EventLiquidityRemoved, evt.Type)

	pool, err := f.pools.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(75_000), pool.YesReserves)
	assert.Equal(t, uint64(75_000), pool.NoReserves)
	assert.Equal(t, uint64(150_000), pool.TotalLiquidity)

	balance, err := f.vault.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000), balance)

	_, _, err = f.svc.RemoveLiquidity(ctx, "m1", "alice", 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
}

func TestSwap(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	now := f.clock.Now()
	require.NoError(t, f.vault.Deposit(ctx, "alice", 200_000))
	_, _, err := f.svc.AddLiquidity(ctx, "m1", "alice", 200_000)
	require.NoError(t, err)

	// Bob holds 2000 YES shares acquired outside the pool.
	pos, err := domain.NewPosition("bob", "m1", domain.OutcomeYes, 2000, 5000, now)
	require.NoError(t, err)
	require.NoError(t, f.positions.Upsert(ctx, pos))

	quote, evt, err := f.svc.Swap(ctx, "m1", "bob", 1000, domain.SwapYesToNo)
	require.NoError(t, err)

	// 1% fee on 1000 leaves 990 in; constant product against 100k/100k
	// reserves pays out 980.
	assert.Equal(t, uint64(10), quote.Fee)
	assert.Equal(t, uint64(980), quote.AmountOut)
	assert.Equal(t, domain.EventSwapExecuted, evt.Type)

	pool, err := f.pools.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_990), pool.YesReserves)
	assert.Equal(t, uint64(99_020), pool.NoReserves)
	assert.Equal(t, uint64(10), pool.AccumulatedFees)

	yesPos, err := f.positions.Get(ctx, "bob", "m1", domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), yesPos.Shares)

	noPos, err := f.positions.Get(ctx, "bob", "m1", domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, uint64(980), noPos.Shares)

	// Price cache reflects the post-swap reserve ratio.
	price, _, err := f.prices.GetPrice(ctx, "m1")
	require.NoError(t, err)
	expected, err := pool.CurrentPrice()
	require.NoError(t, err)
	assert.Equal(t, expected, price)
}

func TestSwapGuards(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	now := f.clock.Now()
	require.NoError(t, f.vault.Deposit(ctx, "alice", 200_000))
	_, _, err := f.svc.AddLiquidity(ctx, "m1", "alice", 200_000)
	require.NoError(t, err)

	// No position on the source side.
	_, _, err = f.svc.Swap(ctx, "m1", "bob", 1000, domain.SwapYesToNo)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	pos, err := domain.NewPosition("bob", "m1", domain.OutcomeYes, 100, 5000, now)
	require.NoError(t, err)
	require.NoError(t, f.positions.Upsert(ctx, pos))

	// More than the position holds.
	_, _, err = f.svc.Swap(ctx, "m1", "bob", 1000, domain.SwapYesToNo)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	_, _, err = f.svc.Swap(ctx, "m1", "bob", 100, domain.SwapDirection("sideways"))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestCollectFees(t *testing.T) {
	f := newLiquidityFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	now := f.clock.Now()
	require.NoError(t, f.vault.Deposit(ctx, "alice", 200_000))
	_, _, err := f.svc.AddLiquidity(ctx, "m1", "alice", 200_000)
	require.NoError(t, err)

	pos, err := domain.NewPosition("bob", "m1", domain.OutcomeYes, 2000, 5000, now)
	require.NoError(t, err)
	require.NoError(t, f.positions.Upsert(ctx, pos))
	_, _, err = f.svc.Swap(ctx, "m1", "bob", 1000, domain.SwapYesToNo)
	require.NoError(t, err)

	_, _, err = f.svc.CollectFees(ctx, "m1", "mallory")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	fees, evt, err := f.svc.CollectFees(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), fees)
	assert.Equal(t, domain.EventFeesCollected, evt.Type)

	balance, err := f.vault.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance)

	// Nothing accrued since the last collection.
	fees, _, err = f.svc.CollectFees(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fees)
}
