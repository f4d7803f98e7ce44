package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type memMarketStore struct {
	markets map[string]domain.Market
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: make(map[string]domain.Market)}
}

func (s *memMarketStore) Create(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) Update(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) ListByStatus(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMarketStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

type memPoolStore struct {
	pools map[string]domain.LiquidityPool
}

func newMemPoolStore() *memPoolStore {
	return &memPoolStore{pools: make(map[string]domain.LiquidityPool)}
}

func (s *memPoolStore) Create(_ context.Context, p domain.LiquidityPool) error {
	if _, ok := s.pools[p.MarketID]; ok {
		return domain.ErrAlreadyExists
	}
	s.pools[p.MarketID] = p
	return nil
}

func (s *memPoolStore) Update(_ context.Context, p domain.LiquidityPool) error {
	if _, ok := s.pools[p.MarketID]; !ok {
		return domain.ErrNotFound
	}
	s.pools[p.MarketID] = p
	return nil
}

func (s *memPoolStore) GetByMarket(_ context.Context, marketID string) (domain.LiquidityPool, error) {
	p, ok := s.pools[marketID]
	if !ok {
		return domain.LiquidityPool{}, domain.ErrNotFound
	}
	return p, nil
}

type memPositionStore struct {
	positions map[string]domain.Position
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{positions: make(map[string]domain.Position)}
}

func positionKey(user, marketID string, outcome domain.Outcome) string {
	return user + "|" + marketID + "|" + string(outcome)
}

func (s *memPositionStore) Upsert(_ context.Context, p domain.Position) error {
	s.positions[positionKey(p.User, p.MarketID, p.Outcome)] = p
	return nil
}

func (s *memPositionStore) Get(_ context.Context, user, marketID string, outcome domain.Outcome) (domain.Position, error) {
	p, ok := s.positions[positionKey(user, marketID, outcome)]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memPositionStore) ListByMarket(_ context.Context, marketID string) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range s.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPositionStore) ListByUser(_ context.Context, user string, _ domain.ListOpts) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range s.positions {
		if p.User == user {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPositionStore) CountActive(_ context.Context, marketID string) (int64, error) {
	var n int64
	for _, p := range s.positions {
		if p.MarketID == marketID && p.Active {
			n++
		}
	}
	return n, nil
}

func (s *memPositionStore) SumWinningShares(_ context.Context, marketID string, outcome domain.Outcome) (uint64, error) {
	var sum uint64
	for _, p := range s.positions {
		if p.MarketID == marketID && p.Outcome == outcome {
			sum += p.Shares
		}
	}
	return sum, nil
}

type memBetStore struct {
	bets []domain.Bet
}

func (s *memBetStore) Create(_ context.Context, b domain.Bet) error {
	s.bets = append(s.bets, b)
	return nil
}

func (s *memBetStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.MarketID == marketID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBetStore) ListByUser(_ context.Context, user string, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.Bettor == user {
			out = append(out, b)
		}
	}
	return out, nil
}

type memAuditStore struct {
	entries []domain.AuditEntry
}

func (s *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.entries = append(s.entries, domain.AuditEntry{
		ID:     int64(len(s.entries) + 1),
		Event:  event,
		Detail: detail,
	})
	return nil
}

func (s *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.entries, nil
}

type memVault struct {
	balances map[string]uint64
}

func newMemVault() *memVault {
	return &memVault{balances: make(map[string]uint64)}
}

func (v *memVault) Transfer(_ context.Context, from, to string, amount uint64) error {
	if v.balances[from] < amount {
		return domain.ErrInsufficientVaultBalance
	}
	v.balances[from] -= amount
	v.balances[to] += amount
	return nil
}

func (v *memVault) Balance(_ context.Context, account string) (uint64, error) {
	return v.balances[account], nil
}

func (v *memVault) Deposit(_ context.Context, account string, amount uint64) error {
	v.balances[account] += amount
	return nil
}

// fakeAtomic records whether calls happen inside an InTx block. Memory
// fakes cannot roll back, so tests assert placement and error propagation
// instead.
type fakeAtomic struct {
	active bool
	calls  int
}

func (a *fakeAtomic) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	a.calls++
	if a.active {
		return fn(ctx)
	}
	a.active = true
	defer func() { a.active = false }()
	return fn(ctx)
}

type noopLocks struct{}

func (noopLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

type memPriceCache struct {
	prices map[string]uint64
	times  map[string]time.Time
}

func newMemPriceCache() *memPriceCache {
	return &memPriceCache{prices: make(map[string]uint64), times: make(map[string]time.Time)}
}

func (c *memPriceCache) SetPrice(_ context.Context, marketID string, price uint64, ts time.Time) error {
	c.prices[marketID] = price
	c.times[marketID] = ts
	return nil
}

func (c *memPriceCache) GetPrice(_ context.Context, marketID string) (uint64, time.Time, error) {
	p, ok := c.prices[marketID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, c.times[marketID], nil
}

func (c *memPriceCache) GetPrices(_ context.Context, marketIDs []string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, id := range marketIDs {
		if p, ok := c.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memMarketCache struct {
	markets map[string]domain.Market
}

func newMemMarketCache() *memMarketCache {
	return &memMarketCache{markets: make(map[string]domain.Market)}
}

func (c *memMarketCache) Set(_ context.Context, m domain.Market) error {
	c.markets[m.ID] = m
	return nil
}

func (c *memMarketCache) Get(_ context.Context, id string) (domain.Market, error) {
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memMarketCache) Invalidate(_ context.Context, id string) error {
	delete(c.markets, id)
	return nil
}
