package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

type marketFixture struct {
	svc       *MarketService
	markets   *memMarketStore
	pools     *memPoolStore
	positions *memPositionStore
	bets      *memBetStore
	audit     *memAuditStore
	vault     *memVault
	clock     *fakeClock
	cache     *memMarketCache
	atomic    *fakeAtomic
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	f := &marketFixture{
		markets:   newMemMarketStore(),
		pools:     newMemPoolStore(),
		positions: newMemPositionStore(),
		bets:      &memBetStore{},
		audit:     &memAuditStore{},
		vault:     newMemVault(),
		clock:     &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		cache:     newMemMarketCache(),
		atomic:    &fakeAtomic{},
	}
	f.svc = NewMarketService(
		f.markets, f.pools, f.positions, f.bets, f.audit,
		f.vault, f.clock, noopLocks{}, f.cache, f.atomic, testLogger(),
	)
	return f
}

func (f *marketFixture) createMarket(t *testing.T, id string) domain.Market {
	t.Helper()
	m, _, err := f.svc.CreateMarket(context.Background(), CreateMarketParams{
		ID:         id,
		Creator:    "alice",
		Title:      "Will it rain tomorrow?",
		EndTime:    f.clock.now.Add(24 * time.Hour),
		MinBet:     10,
		FeeRateBps: 100,
	})
	require.NoError(t, err)
	return m
}

func TestCreateMarket(t *testing.T) {
	f := newMarketFixture(t)

	m := f.createMarket(t, "rain-2025")

	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, uint64(50), m.YesOdds)
	assert.Equal(t, uint64(50), m.NoOdds)

	pool, err := f.pools.GetByMarket(context.Background(), "rain-2025")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), pool.FeeRateBps)
	assert.True(t, pool.Active)

	cached, err := f.cache.Get(context.Background(), "rain-2025")
	require.NoError(t, err)
	assert.Equal(t, m.ID, cached.ID)
}

func TestCreateMarketValidation(t *testing.T) {
	f := newMarketFixture(t)

	_, _, err := f.svc.CreateMarket(context.Background(), CreateMarketParams{
		ID:      "past",
		Creator: "alice",
		Title:   "ended already",
		EndTime: f.clock.now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEndTime)

	f.createMarket(t, "dup")
	_, _, err = f.svc.CreateMarket(context.Background(), CreateMarketParams{
		ID:      "dup",
		Creator: "alice",
		Title:   "again",
		EndTime: f.clock.now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPlaceBet(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	require.NoError(t, f.vault.Deposit(context.Background(), "bob", 5000))

	// Empty market, empty pool: base price 5000 bps plus the flat 500 bps
	// no-liquidity impact gives a 5500 bps share price, so 1100 buys
	// exactly 2000 shares.
	res, evt, err := f.svc.PlaceBet(context.Background(), "m1", "bob", 1100, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, uint64(5500), res.Bet.Price)
	assert.Equal(t, uint64(2000), res.Bet.Shares)
	assert.Equal(t, uint64(2000), res.Position.Shares)
	assert.Equal(t, uint64(100), res.YesOdds)
	assert.Equal(t, uint64(0), res.NoOdds)

	assert.Equal(t, domain.EventBetPlaced, evt.Type)
	assert.Equal(t, "bob", evt.Actor)

	// Stake escrowed in the market vault account.
	balance, err := f.vault.Balance(context.Background(), domain.VaultAccount("m1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), balance)

	m, err := f.markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.TotalBets)
	assert.Equal(t, uint64(1100), m.TotalVolume)
	assert.Equal(t, uint64(1100), m.TotalPool)
	assert.Equal(t, uint64(1100), m.YesVolume)
}

func TestPlaceBetSecondBetFoldsIntoPosition(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	require.NoError(t, f.vault.Deposit(context.Background(), "bob", 5000))

	first, _, err := f.svc.PlaceBet(context.Background(), "m1", "bob", 1100, domain.OutcomeYes)
	require.NoError(t, err)
	second, _, err := f.svc.PlaceBet(context.Background(), "m1", "bob", 500, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, first.Bet.Shares+second.Bet.Shares, second.Position.Shares)
	assert.Len(t, f.bets.bets, 2)
}

func TestPlaceBetGuards(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	require.NoError(t, f.vault.Deposit(context.Background(), "bob", 5000))

	ctx := context.Background()

	_, _, err := f.svc.PlaceBet(ctx, "missing", "bob", 100, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = f.svc.PlaceBet(ctx, "m1", "bob", 5, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrBetTooLow)

	_, _, err = f.svc.PlaceBet(ctx, "m1", "bob", 100, domain.Outcome("maybe"))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	// Insufficient bettor funds abort before any record lands.
	_, _, err = f.svc.PlaceBet(ctx, "m1", "poor", 100, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrInsufficientVaultBalance)
	assert.Empty(t, f.bets.bets)

	f.clock.Advance(25 * time.Hour)
	_, _, err = f.svc.PlaceBet(ctx, "m1", "bob", 100, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrMarketExpired)
}

type failingBetStore struct {
	memBetStore
}

func (s *failingBetStore) Create(context.Context, domain.Bet) error {
	return errors.New("bet insert failed")
}

// txObservingVault records whether Transfer ran inside the atomic block.
type txObservingVault struct {
	*memVault
	atomic       *fakeAtomic
	transferInTx bool
}

func (v *txObservingVault) Transfer(ctx context.Context, from, to string, amount uint64) error {
	v.transferInTx = v.atomic.active
	return v.memVault.Transfer(ctx, from, to, amount)
}

func TestPlaceBetTransferAndRecordsShareTransaction(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, "bob", 5000))

	vault := &txObservingVault{memVault: f.vault, atomic: f.atomic}
	svc := NewMarketService(
		f.markets, f.pools, f.positions, &failingBetStore{}, f.audit,
		vault, f.clock, noopLocks{}, f.cache, f.atomic, testLogger(),
	)

	// The escrow transfer runs inside the same transaction as the record
	// writes, so the failed bet insert rolls the transfer back with it and
	// the error reaches the caller.
	before := f.atomic.calls
	_, _, err := svc.PlaceBet(ctx, "m1", "bob", 1100, domain.OutcomeYes)
	require.Error(t, err)
	assert.True(t, vault.transferInTx)
	assert.Equal(t, before+1, f.atomic.calls)
}

func TestResolveMarket(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()

	// Cannot resolve before the end time.
	_, err := f.svc.ResolveMarket(ctx, "m1", "alice", domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrMarketNotEnded)

	f.clock.Advance(25 * time.Hour)

	_, err = f.svc.ResolveMarket(ctx, "m1", "mallory", domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	evt, err := f.svc.ResolveMarket(ctx, "m1", "alice", domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, domain.EventMarketResolved, evt.Type)

	m, err := f.markets.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusResolved, m.Status)
	require.NotNil(t, m.WinningOutcome)
	assert.Equal(t, domain.OutcomeYes, *m.WinningOutcome)
	require.NotNil(t, m.ResolvedAt)

	pool, err := f.pools.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, pool.Active)

	// Resolution is terminal.
	_, err = f.svc.ResolveMarket(ctx, "m1", "alice", domain.OutcomeNo)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)

	// Resolved market drops out of the cache.
	_, err = f.cache.Get(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelMarket(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()

	evt, err := f.svc.CancelMarket(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.EventMarketCancelled, evt.Type)

	m, err := f.markets.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusCancelled, m.Status)
}

func TestCancelMarketBlockedByOpenPositions(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()
	require.NoError(t, f.vault.Deposit(ctx, "bob", 5000))

	_, _, err := f.svc.PlaceBet(ctx, "m1", "bob", 100, domain.OutcomeNo)
	require.NoError(t, err)

	_, err = f.svc.CancelMarket(ctx, "m1", "alice")
	assert.ErrorIs(t, err, domain.ErrMarketHasPositions)
}

func TestGetMarketPrefersCache(t *testing.T) {
	f := newMarketFixture(t)
	f.createMarket(t, "m1")
	ctx := context.Background()

	// Poison the backing store; a cache hit never touches it.
	delete(f.markets.markets, "m1")

	m, err := f.svc.GetMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)

	require.NoError(t, f.cache.Invalidate(ctx, "m1"))
	_, err = f.svc.GetMarket(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
