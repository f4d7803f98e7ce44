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

// shareRatioScale is the fixed-point scale for a winner's share of the pool.
const shareRatioScale = 1_000_000

// ClaimResult describes a successful winnings claim.
type ClaimResult struct {
	MarketID   string    `json:"market_id"`
	User       string    `json:"user"`
	Outcome    string    `json:"outcome"`
	Shares     uint64    `json:"shares"`
	ShareRatio uint64    `json:"share_ratio"`
	Winnings   uint64    `json:"winnings"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// SettlementReport summarizes a resolved market's payout state for archival.
type SettlementReport struct {
	MarketID       string     `json:"market_id"`
	WinningOutcome string     `json:"winning_outcome"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	TotalPool      uint64     `json:"total_pool"`
	TotalClaimed   uint64     `json:"total_claimed"`
	WinningShares  uint64     `json:"winning_shares"`
	VaultBalance   uint64     `json:"vault_balance"`
	Claims         []ClaimResult
}

// SettlementService pays out winning positions on resolved markets.
type SettlementService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	vault     domain.Vault
	audit     domain.AuditStore
	clock     domain.Clock
	locks     domain.LockManager
	atomic    domain.Atomic
	logger    *slog.Logger
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	vault domain.Vault,
	audit domain.AuditStore,
	clock domain.Clock,
	locks domain.LockManager,
	atomic domain.Atomic,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:   markets,
		positions: positions,
		vault:     vault,
		audit:     audit,
		clock:     clock,
		locks:     locks,
		atomic:    atomic,
		logger:    logger,
	}
}

// ClaimWinnings pays out the caller's winning position on a resolved market.
// The payout is the user's pro-rata share of the pool: with winning shares w
// out of total winning shares W and pool P, the user receives
// P * (w * 1e6 / W) / 1e6. Each position can claim exactly once.
func (s *SettlementService) ClaimWinnings(ctx context.Context, marketID, user string) (result ClaimResult, evt domain.Event, err error) {
	err = withMarketLock(ctx, s.locks, marketID, func(ctx context.Context) error {
		now := s.clock.Now()

		market, err := s.markets.GetByID(ctx, marketID)
		if err != nil {
			return fmt.Errorf("settlement_service: load market %s: %w", marketID, err)
		}
		if market.Status != domain.MarketStatusResolved {
			return domain.ErrMarketNotResolved
		}

		outcome := *market.WinningOutcome
		position, err := s.positions.Get(ctx, user, marketID, outcome)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotWinningPosition
		}
		if err != nil {
			return fmt.Errorf("settlement_service: load position: %w", err)
		}
		if position.Claimed {
			return domain.ErrAlreadyClaimed
		}
		if position.Shares == 0 {
			return domain.ErrNotWinningPosition
		}

		totalWinning, err := s.positions.SumWinningShares(ctx, marketID, outcome)
		if err != nil {
			return fmt.Errorf("settlement_service: sum winning shares %s: %w", marketID, err)
		}
		if totalWinning == 0 {
			return domain.ErrNoWinningShares
		}

		ratio, err := fixedpoint.MulDiv(position.Shares, shareRatioScale, totalWinning)
		if err != nil {
			return err
		}
		winnings, err := fixedpoint.MulDiv(market.TotalPool, ratio, shareRatioScale)
		if err != nil {
			return err
		}
		if winnings == 0 {
			return domain.ErrNoWinningsToClaim
		}

		account := domain.VaultAccount(marketID)
		balance, err := s.vault.Balance(ctx, account)
		if err != nil {
			return fmt.Errorf("settlement_service: vault balance %s: %w", account, err)
		}
		if balance < winnings {
			return domain.ErrInsufficientVaultBalance
		}

		if err := position.MarkClaimed(winnings, now); err != nil {
			return err
		}
		market.TotalClaimed = fixedpoint.SatAdd(market.TotalClaimed, winnings)

		// Payout and claim records commit together so a failed write
		// cannot leave the vault debited with the position unclaimed.
		err = inTx(ctx, s.atomic, func(ctx context.Context) error {
			if err := s.vault.Transfer(ctx, account, user, winnings); err != nil {
				return fmt.Errorf("settlement_service: pay out winnings: %w", err)
			}
			if err := s.positions.Upsert(ctx, position); err != nil {
				return fmt.Errorf("settlement_service: persist position: %w", err)
			}
			if err := s.markets.Update(ctx, market); err != nil {
				return fmt.Errorf("settlement_service: persist market %s: %w", marketID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.auditLog(ctx, domain.EventWinningsClaimed, map[string]any{
			"market_id": marketID,
			"user":      user,
			"shares":    position.Shares,
			"winnings":  winnings,
		})

		result = ClaimResult{
			MarketID:   marketID,
			User:       user,
			Outcome:    string(outcome),
			Shares:     position.Shares,
			ShareRatio: ratio,
			Winnings:   winnings,
			ClaimedAt:  now,
		}
		evt = domain.NewEvent(domain.EventWinningsClaimed, marketID, user, now, map[string]any{
			"outcome":  string(outcome),
			"shares":   position.Shares,
			"winnings": winnings,
		})
		return nil
	})
	if err != nil {
		return ClaimResult{}, domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "settlement_service: winnings claimed",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.Uint64("winnings", result.Winnings),
	)
	return result, evt, nil
}

// Report assembles the settlement state of a resolved market. It is read
// only and does not take the market lock.
func (s *SettlementService) Report(ctx context.Context, marketID string) (SettlementReport, error) {
	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return SettlementReport{}, fmt.Errorf("settlement_service: load market %s: %w", marketID, err)
	}
	if market.Status != domain.MarketStatusResolved {
		return SettlementReport{}, domain.ErrMarketNotResolved
	}
	outcome := *market.WinningOutcome

	winningShares, err := s.positions.SumWinningShares(ctx, marketID, outcome)
	if err != nil {
		return SettlementReport{}, fmt.Errorf("settlement_service: sum winning shares: %w", err)
	}
	balance, err := s.vault.Balance(ctx, domain.VaultAccount(marketID))
	if err != nil {
		return SettlementReport{}, fmt.Errorf("settlement_service: vault balance: %w", err)
	}

	report := SettlementReport{
		MarketID:       marketID,
		WinningOutcome: string(outcome),
		ResolvedAt:     market.ResolvedAt,
		TotalPool:      market.TotalPool,
		TotalClaimed:   market.TotalClaimed,
		WinningShares:  winningShares,
		VaultBalance:   balance,
	}

	positions, err := s.positions.ListByMarket(ctx, marketID)
	if err != nil {
		return SettlementReport{}, fmt.Errorf("settlement_service: list positions: %w", err)
	}
	for _, p := range positions {
		if !p.Claimed || p.Outcome != outcome {
			continue
		}
		report.Claims = append(report.Claims, ClaimResult{
			MarketID:  marketID,
			User:      p.User,
			Outcome:   string(p.Outcome),
			Shares:    p.Shares,
			Winnings:  p.WinningsClaimed,
			ClaimedAt: p.LastUpdated,
		})
	}
	return report, nil
}

func (s *SettlementService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
