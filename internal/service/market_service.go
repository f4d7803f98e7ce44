// Package service implements the public operation surface of the settlement
// core: market lifecycle, liquidity operations, and settlement. Each mutating
// method acquires the market's lock, runs every guard before the first state
// change, persists the full set of record deltas, and returns a structured
// event describing what happened. Services never publish events themselves.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
	"github.com/zentrolabs/zentro-core/internal/pricing"
)

// MarketService owns the market lifecycle: creation, betting, resolution,
// and cancellation.
type MarketService struct {
	markets   domain.MarketStore
	pools     domain.PoolStore
	positions domain.PositionStore
	bets      domain.BetStore
	audit     domain.AuditStore
	vault     domain.Vault
	clock     domain.Clock
	locks     domain.LockManager
	cache     domain.MarketCache
	atomic    domain.Atomic
	params    pricing.Params
	logger    *slog.Logger
}

// NewMarketService creates a MarketService with all required collaborators.
func NewMarketService(
	markets domain.MarketStore,
	pools domain.PoolStore,
	positions domain.PositionStore,
	bets domain.BetStore,
	audit domain.AuditStore,
	vault domain.Vault,
	clock domain.Clock,
	locks domain.LockManager,
	cache domain.MarketCache,
	atomic domain.Atomic,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:   markets,
		pools:     pools,
		positions: positions,
		bets:      bets,
		audit:     audit,
		vault:     vault,
		clock:     clock,
		locks:     locks,
		cache:     cache,
		atomic:    atomic,
		params:    pricing.DefaultParams(),
		logger:    logger,
	}
}

// CreateMarketParams carries the caller-supplied fields for a new market.
type CreateMarketParams struct {
	ID          string
	Creator     string
	Title       string
	Description string
	Category    string
	EndTime     time.Time
	MinBet      uint64
	MaxBet      uint64
	FeeRateBps  uint64
}

// CreateMarket validates the parameters, creates the market and its pool,
// and returns the created market with a MarketCreated event.
func (s *MarketService) CreateMarket(ctx context.Context, p CreateMarketParams) (domain.Market, domain.Event, error) {
	now := s.clock.Now()

	market, err := domain.NewMarket(p.ID, p.Creator, p.Title, p.Description, p.Category, p.EndTime, now, p.MinBet, p.MaxBet)
	if err != nil {
		return domain.Market{}, domain.Event{}, fmt.Errorf("market_service: create market %s: %w", p.ID, err)
	}
	pool, err := domain.NewLiquidityPool(market.ID, p.FeeRateBps, now)
	if err != nil {
		return domain.Market{}, domain.Event{}, fmt.Errorf("market_service: create pool for %s: %w", p.ID, err)
	}

	err = inTx(ctx, s.atomic, func(ctx context.Context) error {
		if err := s.markets.Create(ctx, market); err != nil {
			return fmt.Errorf("market_service: persist market %s: %w", p.ID, err)
		}
		if err := s.pools.Create(ctx, pool); err != nil {
			return fmt.Errorf("market_service: persist pool %s: %w", p.ID, err)
		}
		return nil
	})
	if err != nil {
		return domain.Market{}, domain.Event{}, err
	}

	s.cacheMarket(ctx, market)
	s.auditLog(ctx, domain.EventMarketCreated, map[string]any{
		"market_id": market.ID,
		"creator":   market.Creator,
		"end_time":  market.EndTime,
	})

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", market.ID),
		slog.String("creator", market.Creator),
		slog.Time("end_time", market.EndTime),
	)

	evt := domain.NewEvent(domain.EventMarketCreated, market.ID, p.Creator, now, map[string]any{
		"title":    market.Title,
		"category": market.Category,
		"end_time": market.EndTime,
		"fee_bps":  p.FeeRateBps,
	})
	return market, evt, nil
}

// BetResult reports the outcome of a successful wager.
type BetResult struct {
	Bet      domain.Bet
	Position domain.Position
	YesOdds  uint64
	NoOdds   uint64
}

// PlaceBet wagers amount on one outcome of an active market. The amount is
// escrowed in the market vault, converted to shares at the quoted price
// (market price for the chosen side plus impact), and recorded against the
// bettor's position.
func (s *MarketService) PlaceBet(ctx context.Context, marketID, bettor string, amount uint64, outcome domain.Outcome) (BetResult, domain.Event, error) {
	var (
		result BetResult
		evt    domain.Event
	)
	err := withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load market %s: %w", marketID, err)
		}
		if err := market.CanAcceptBets(now); err != nil {
			return err
		}
		if err := market.ValidateBetAmount(amount); err != nil {
			return err
		}
		if !outcome.Valid() {
			return domain.ErrInvalidOutcome
		}

		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load pool %s: %w", marketID, err)
		}

		sharePrice, shares, err := quoteShares(&market, &pool, amount, outcome, s.params)
		if err != nil {
			return err
		}

		position, err := openOrAddPosition(ctx, s.positions, bettor, marketID, outcome, shares, sharePrice, now)
		if err != nil {
			return err
		}

		market.RecordBet(amount, outcome)

		bet := domain.Bet{
			ID:       uuid.New().String(),
			MarketID: marketID,
			Bettor:   bettor,
			Amount:   amount,
			Outcome:  outcome,
			Shares:   shares,
			Price:    sharePrice,
			PlacedAt: now,
		}

		// The escrow transfer and the record writes commit together; a
		// failure anywhere leaves neither funds moved nor rows written.
		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.vault.Transfer(ctx, bettor, domain.VaultAccount(marketID), amount); err != nil {
				return fmt.Errorf("market_service: escrow bet: %w", err)
			}
			if err := s.positions.Upsert(ctx, position); err != nil {
				return fmt.Errorf("market_service: persist position: %w", err)
			}
			if err := s.bets.Create(ctx, bet); err != nil {
				return fmt.Errorf("market_service: persist bet: %w", err)
			}
			if err := s.markets.Update(ctx, market); err != nil {
				return fmt.Errorf("market_service: persist market %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.cacheMarket(ctx, market)
		s.auditLog(ctx, domain.EventBetPlaced, map[string]any{
			"market_id": marketID,
			"bettor":    bettor,
			"amount":    amount,
			"outcome":   string(outcome),
			"shares":    shares,
		})

		result = BetResult{Bet: bet, Position: position, YesOdds: market.YesOdds, NoOdds: market.NoOdds}
		evt = domain.NewEvent(domain.EventBetPlaced, marketID, bettor, now, map[string]any{
			"amount":   amount,
			"outcome":  string(outcome),
			"shares":   shares,
			"price":    sharePrice,
			"yes_odds": market.YesOdds,
			"no_odds":  market.NoOdds,
		})
		return nil
	})
	if err != nil {
		return BetResult{}, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "market_service: bet placed",
		slog.String("market_id", marketID),
		slog.String("bettor", bettor),
		slog.Uint64("amount", amount),
		slog.String("outcome", string(outcome)),
	)
	return result, evt, nil
}

// ResolveMarket transitions an ended market to Resolved with the winning
// outcome and deactivates its pool. Only the creator may resolve.
func (s *MarketService) ResolveMarket(ctx context.Context, marketID, actor string, outcome domain.Outcome) (domain.Event, error) {
	var evt domain.Event
	err := withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load market %s: %w", marketID, err)
		}
		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load pool %s: %w", marketID, err)
		}

		if err := market.Resolve(outcome, actor, now); err != nil {
			return err
		}
		pool.Deactivate()

		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.markets.Update(ctx, market); err != nil {
				return fmt.Errorf("market_service: persist market %s: %w", marketID, err)
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("market_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.invalidateMarket(ctx, marketID)
		s.auditLog(ctx, domain.EventMarketResolved, map[string]any{
			"market_id": marketID,
			"actor":     actor,
			"outcome":   string(outcome),
		})

		evt = domain.NewEvent(domain.EventMarketResolved, marketID, actor, now, map[string]any{
			"outcome":     string(outcome),
			"total_pool":  market.TotalPool,
			"resolved_at": now,
		})
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "market_service: market resolved",
		slog.String("market_id", marketID),
		slog.String("outcome", string(outcome)),
	)
	return evt, nil
}

// CancelMarket cancels an active market with no open positions and
// deactivates its pool. Only the creator may cancel.
func (s *MarketService) CancelMarket(ctx context.Context, marketID, actor string) (domain.Event, error) {
	var evt domain.Event
	err := withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load market %s: %w", marketID, err)
		}
		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: load pool %s: %w", marketID, err)
		}

		active, err := s.positions.CountActive(ctx, marketID)
		if err != nil {
			return fmt.Errorf("market_service: count positions %s: %w", marketID, err)
		}

		if err := market.Cancel(actor, now, active > 0); err != nil {
			return err
		}
		pool.Deactivate()

		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.markets.Update(ctx, market); err != nil {
				return fmt.Errorf("market_service: persist market %s: %w", marketID, err)
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("market_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.invalidateMarket(ctx, marketID)
		s.auditLog(ctx, domain.EventMarketCancelled, map[string]any{
			"market_id": marketID,
			"actor":     actor,
		})

		evt = domain.NewEvent(domain.EventMarketCancelled, marketID, actor, now, nil)
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "market_service: market cancelled",
		slog.String("market_id", marketID),
	)
	return evt, nil
}

// GetMarket returns a market, preferring the cache.
func (s *MarketService) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, marketID); err == nil {
			return m, nil
		}
	}
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: load market %s: %w", marketID, err)
	}
	s.cacheMarket(ctx, m)
	return m, nil
}

// ListMarkets returns markets, optionally filtered by status.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	if status == "" {
		return s.markets.List(ctx, opts)
	}
	return s.markets.ListByStatus(ctx, status, opts)
}

// quoteShares converts a wager into shares at the current quoted price for
// the chosen side: implied market price, complemented for NO, plus the
// impact of a trade this size against pool liquidity. Checked arithmetic:
// a quote that cannot be represented rejects the bet.
func quoteShares(m *domain.Market, p *domain.LiquidityPool, amount uint64, outcome domain.Outcome, params pricing.Params) (sharePrice, shares uint64, err error) {
	marketPrice := pricing.MarketPrice(m.YesVolume, m.NoVolume, p.TotalLiquidity, params)

	sidePrice := marketPrice
	if !outcome.IsYes() {
		sidePrice = fixedpoint.SatSub(pricing.BpsScale, marketPrice)
	}
	sharePrice = fixedpoint.SatAdd(sidePrice, pricing.PriceImpact(amount, p.TotalLiquidity))
	if sharePrice == 0 {
		return 0, 0, domain.ErrInvalidAmount
	}

	shares, err = fixedpoint.MulDiv(amount, pricing.BpsScale, sharePrice)
	if err != nil {
		return 0, 0, err
	}
	if shares == 0 {
		return 0, 0, domain.ErrInvalidAmount
	}
	return sharePrice, shares, nil
}

// openOrAddPosition loads the (user, market, outcome) position, creating it
// on first acquisition and otherwise folding the new shares into the
// weighted average.
func openOrAddPosition(ctx context.Context, store domain.PositionStore, user, marketID string, outcome domain.Outcome, shares, price uint64, now time.Time) (domain.Position, error) {
	position, err := store.Get(ctx, user, marketID, outcome)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		position, err = domain.NewPosition(user, marketID, outcome, shares, price, now)
		if err != nil {
			return domain.Position{}, err
		}
	case err != nil:
		return domain.Position{}, fmt.Errorf("service: load position: %w", err)
	default:
		if err := position.AddShares(shares, price, now); err != nil {
			return domain.Position{}, err
		}
	}
	return position, nil
}

func (s *MarketService) cacheMarket(ctx context.Context, m domain.Market) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache market failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) invalidateMarket(ctx context.Context, marketID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "market_service: invalidate market failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
