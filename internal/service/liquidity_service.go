package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// poolPriceToBps converts the pool's 1e6-scaled price to basis points.
const poolPriceToBps = 100

// LiquidityService owns pool mutations: deposits, withdrawals, swaps, and
// fee collection.
type LiquidityService struct {
	markets   domain.MarketStore
	pools     domain.PoolStore
	positions domain.PositionStore
	audit     domain.AuditStore
	vault     domain.Vault
	clock     domain.Clock
	locks     domain.LockManager
	prices    domain.PriceCache
	atomic    domain.Atomic
	logger    *slog.Logger
}

// NewLiquidityService creates a LiquidityService with all required
// collaborators.
func NewLiquidityService(
	markets domain.MarketStore,
	pools domain.PoolStore,
	positions domain.PositionStore,
	audit domain.AuditStore,
	vault domain.Vault,
	clock domain.Clock,
	locks domain.LockManager,
	prices domain.PriceCache,
	atomic domain.Atomic,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		markets:   markets,
		pools:     pools,
		positions: positions,
		audit:     audit,
		vault:     vault,
		clock:     clock,
		locks:     locks,
		prices:    prices,
		atomic:    atomic,
		logger:    logger,
	}
}

// AddLiquidity deposits amount into the market's pool and mints liquidity
// tokens for the provider. The deposit is escrowed in the market vault.
func (s *LiquidityService) AddLiquidity(ctx context.Context, marketID, provider string, amount uint64) (tokens uint64, evt domain.Event, err error) {
	err = withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load market %s: %w", marketID, err)
		}
		if err := market.CanAcceptBets(now); err != nil {
			return err
		}
		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load pool %s: %w", marketID, err)
		}

		tokens, err = pool.AddLiquidity(amount)
		if err != nil {
			return err
		}

		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.vault.Transfer(ctx, provider, domain.VaultAccount(marketID), amount); err != nil {
				return fmt.Errorf("liquidity_service: escrow deposit: %w", err)
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("liquidity_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.publishPoolPrice(ctx, marketID, &pool, now)
		s.auditLog(ctx, domain.EventLiquidityAdded, map[string]any{
			"market_id": marketID,
			"provider":  provider,
			"amount":    amount,
			"tokens":    tokens,
		})

		evt = domain.NewEvent(domain.EventLiquidityAdded, marketID, provider, now, map[string]any{
			"amount":          amount,
			"tokens":          tokens,
			"total_liquidity": pool.TotalLiquidity,
		})
		return nil
	})
	if err != nil {
		return 0, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "liquidity_service: liquidity added",
		slog.String("market_id", marketID),
		slog.String("provider", provider),
		slog.Uint64("amount", amount),
		slog.Uint64("tokens", tokens),
	)
	return tokens, evt, nil
}

// RemoveLiquidity burns the provider's tokens and pays out the proportional
// share of both reserves from the market vault.
func (s *LiquidityService) RemoveLiquidity(ctx context.Context, marketID, provider string, tokens uint64) (payout uint64, evt domain.Event, err error) {
	err = withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load pool %s: %w", marketID, err)
		}

		yesAmount, noAmount, err := pool.RemoveLiquidity(tokens)
		if err != nil {
			return err
		}
		payout, err = fixedpoint.CheckedAdd(yesAmount, noAmount)
		if err != nil {
			return err
		}

		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.vault.Transfer(ctx, domain.VaultAccount(marketID), provider, payout); err != nil {
				return fmt.Errorf("liquidity_service: pay out withdrawal: %w", err)
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("liquidity_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.publishPoolPrice(ctx, marketID, &pool, now)
		s.auditLog(ctx, domain.EventLiquidityRemoved, map[string]any{
			"market_id": marketID,
			"provider":  provider,
			"tokens":    tokens,
			"payout":    payout,
		})

		evt = domain.NewEvent(domain.EventLiquidityRemoved, marketID, provider, now, map[string]any{
			"tokens":          tokens,
			"yes_amount":      yesAmount,
			"no_amount":       noAmount,
			"total_liquidity": pool.TotalLiquidity,
		})
		return nil
	})
	if err != nil {
		return 0, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "liquidity_service: liquidity removed",
		slog.String("market_id", marketID),
		slog.String("provider", provider),
		slog.Uint64("tokens", tokens),
		slog.Uint64("payout", payout),
	)
	return payout, evt, nil
}

// Swap exchanges the trader's shares on one side for shares on the other at
// the constant-product price. Quote and execution run under the same market
// lock, so the executed amounts are exactly the quoted ones.
func (s *LiquidityService) Swap(ctx context.Context, marketID, trader string, amountIn uint64, direction domain.SwapDirection) (quote domain.SwapQuote, evt domain.Event, err error) {
	err = withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load market %s: %w", marketID, err)
		}
		if err := market.CanAcceptBets(now); err != nil {
			return err
		}
		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load pool %s: %w", marketID, err)
		}

		quote, err = pool.QuoteSwap(amountIn, direction)
		if err != nil {
			return err
		}

		fromOutcome, toOutcome := domain.OutcomeYes, domain.OutcomeNo
		if direction == domain.SwapNoToYes {
			fromOutcome, toOutcome = domain.OutcomeNo, domain.OutcomeYes
		}

		fromPos, err := s.positions.Get(ctx, trader, marketID, fromOutcome)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInsufficientShares
		}
		if err != nil {
			return fmt.Errorf("liquidity_service: load %s position: %w", fromOutcome, err)
		}
		if err := fromPos.RemoveShares(amountIn, now); err != nil {
			return err
		}

		if err := pool.ExecuteSwap(quote.AmountIn, quote.AmountOut, quote.Direction); err != nil {
			return err
		}

		// The acquired side is booked at the pool price after the swap.
		price, err := pool.CurrentPrice()
		if err != nil {
			return err
		}
		toPos, err := openOrAddPosition(ctx, s.positions, trader, marketID, toOutcome, quote.AmountOut, price/poolPriceToBps, now)
		if err != nil {
			return err
		}

		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.positions.Upsert(ctx, fromPos); err != nil {
				return fmt.Errorf("liquidity_service: persist %s position: %w", fromOutcome, err)
			}
			if err := s.positions.Upsert(ctx, toPos); err != nil {
				return fmt.Errorf("liquidity_service: persist %s position: %w", toOutcome, err)
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("liquidity_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.publishPoolPrice(ctx, marketID, &pool, now)
		s.auditLog(ctx, domain.EventSwapExecuted, map[string]any{
			"market_id":  marketID,
			"trader":     trader,
			"amount_in":  quote.AmountIn,
			"amount_out": quote.AmountOut,
			"fee":        quote.Fee,
			"direction":  string(direction),
		})

		evt = domain.NewEvent(domain.EventSwapExecuted, marketID, trader, now, map[string]any{
			"amount_in":  quote.AmountIn,
			"amount_out": quote.AmountOut,
			"fee":        quote.Fee,
			"direction":  string(direction),
			"pool_price": price,
		})
		return nil
	})
	if err != nil {
		return domain.SwapQuote{}, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "liquidity_service: swap executed",
		slog.String("market_id", marketID),
		slog.String("trader", trader),
		slog.Uint64("amount_in", quote.AmountIn),
		slog.Uint64("amount_out", quote.AmountOut),
	)
	return quote, evt, nil
}

// CollectFees pays the pool's accumulated swap fees out of the market vault
// to the market creator and zeroes the counter. Only the creator may
// collect; collecting when nothing has accrued is a no-op success.
func (s *LiquidityService) CollectFees(ctx context.Context, marketID, actor string) (fees uint64, evt domain.Event, err error) {
	err = withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load market %s: %w", marketID, err)
		}
		if actor != market.Creator {
			return domain.ErrUnauthorized
		}
		pool, err := s.pools.GetByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load pool %s: %w", marketID, err)
		}

		fees = pool.CollectFees()
		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if fees > 0 {
				if err := s.vault.Transfer(ctx, domain.VaultAccount(marketID), actor, fees); err != nil {
					return fmt.Errorf("liquidity_service: pay out fees: %w", err)
				}
			}
			if err := s.pools.Update(ctx, pool); err != nil {
				return fmt.Errorf("liquidity_service: persist pool %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.auditLog(ctx, domain.EventFeesCollected, map[string]any{
			"market_id": marketID,
			"actor":     actor,
			"fees":      fees,
		})

		evt = domain.NewEvent(domain.EventFeesCollected, marketID, actor, now, map[string]any{
			"fees": fees,
		})
		return nil
	})
	if err != nil {
		return 0, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "liquidity_service: fees collected",
		slog.String("market_id", marketID),
		slog.Uint64("fees", fees),
	)
	return fees, evt, nil
}

// publishPoolPrice refreshes the cached pool price. Best effort: a cache
// write failure never fails the operation that moved the price.
func (s *LiquidityService) publishPoolPrice(ctx context.Context, marketID string, pool *domain.LiquidityPool, now time.Time) {
	if s.prices == nil {
		return
	}
	price, err := pool.CurrentPrice()
	if err != nil {
		return
	}
	if err := s.prices.SetPrice(ctx, marketID, price, now); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: price cache write failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LiquidityService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
