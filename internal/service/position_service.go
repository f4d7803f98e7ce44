package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// PortfolioEntry is one position enriched with the latest cached pool price.
type PortfolioEntry struct {
	Position     domain.Position `json:"position"`
	CurrentPrice uint64          `json:"current_price"`
	PriceAsOf    time.Time       `json:"price_as_of,omitzero"`
	PnL          int64           `json:"pnl"`
	ROI          float64         `json:"roi"`
}

// Portfolio is a user's positions across markets with aggregate totals.
type Portfolio struct {
	User            string           `json:"user"`
	Entries         []PortfolioEntry `json:"entries"`
	TotalInvested   uint64           `json:"total_invested"`
	TotalClaimed    uint64           `json:"total_claimed"`
	ActivePositions int              `json:"active_positions"`
}

// PositionService is the read side of the position ledger: lookups,
// portfolios, and mark-to-market valuation against the price cache.
type PositionService struct {
	positions domain.PositionStore
	prices    domain.PriceCache
	logger    *slog.Logger
}

// NewPositionService creates a PositionService.
func NewPositionService(positions domain.PositionStore, prices domain.PriceCache, logger *slog.Logger) *PositionService {
	return &PositionService{
		positions: positions,
		prices:    prices,
		logger:    logger,
	}
}

// GetPosition returns one position by its (user, market, outcome) key.
func (s *PositionService) GetPosition(ctx context.Context, user, marketID string, outcome domain.Outcome) (domain.Position, error) {
	if !outcome.Valid() {
		return domain.Position{}, domain.ErrInvalidOutcome
	}
	pos, err := s.positions.Get(ctx, user, marketID, outcome)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get position %s/%s/%s: %w", user, marketID, outcome, err)
	}
	return pos, nil
}

// ListByMarket returns every position on a market.
func (s *PositionService) ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error) {
	positions, err := s.positions.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("position_service: list positions for %s: %w", marketID, err)
	}
	return positions, nil
}

// GetPortfolio returns the user's positions marked to the latest cached
// pool prices. A position on a market with no cached price is valued at its
// own average acquisition price, so its PnL reads as zero rather than as a
// total loss.
func (s *PositionService) GetPortfolio(ctx context.Context, user string, opts domain.ListOpts) (Portfolio, error) {
	positions, err := s.positions.ListByUser(ctx, user, opts)
	if err != nil {
		return Portfolio{}, fmt.Errorf("position_service: list positions for %s: %w", user, err)
	}

	portfolio := Portfolio{User: user}
	for _, pos := range positions {
		entry := PortfolioEntry{Position: pos, CurrentPrice: pos.AveragePrice}

		if s.prices != nil {
			price, ts, priceErr := s.prices.GetPrice(ctx, pos.MarketID)
			if priceErr == nil {
				// Cached prices are on the 1e6 pool scale; positions
				// are priced in bps.
				entry.CurrentPrice = price / poolPriceToBps
				entry.PriceAsOf = ts
			} else {
				s.logger.DebugContext(ctx, "position_service: no cached price",
					slog.String("market_id", pos.MarketID),
					slog.String("error", priceErr.Error()),
				)
			}
		}

		entry.PnL = pos.PnL(entry.CurrentPrice)
		entry.ROI = pos.ROI(entry.CurrentPrice)

		portfolio.Entries = append(portfolio.Entries, entry)
		portfolio.TotalInvested += pos.TotalInvested
		portfolio.TotalClaimed += pos.WinningsClaimed
		if pos.Active {
			portfolio.ActivePositions++
		}
	}
	return portfolio, nil
}
