package domain

import (
	"time"

	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// Position is one user's stake in one outcome of one market. The invariant
// TotalInvested == Shares * AveragePrice holds after every mutation, up to
// the floor of the integer division that derives AveragePrice.
type Position struct {
	User     string
	MarketID string
	Outcome  Outcome

	Shares       uint64
	AveragePrice uint64 // bps paid per share, weighted across acquisitions
	TotalInvested uint64

	CreatedAt   time.Time
	LastUpdated time.Time

	Active          bool
	Claimed         bool
	WinningsClaimed uint64
}

// NewPosition opens a position with an initial share acquisition.
func NewPosition(user, marketID string, outcome Outcome, shares, price uint64, now time.Time) (Position, error) {
	if shares == 0 {
		return Position{}, ErrInvalidAmount
	}
	if !outcome.Valid() {
		return Position{}, ErrInvalidOutcome
	}
	invested, err := fixedpoint.CheckedMul(shares, price)
	if err != nil {
		return Position{}, err
	}
	return Position{
		User:          user,
		MarketID:      marketID,
		Outcome:       outcome,
		Shares:        shares,
		AveragePrice:  price,
		TotalInvested: invested,
		CreatedAt:     now,
		LastUpdated:   now,
		Active:        true,
	}, nil
}

// AddShares acquires additional shares at price and recomputes the weighted
// average acquisition price. The average floors on integer division; the
// drift this compounds over many small adds is a known property of the
// scheme, surfaced in the position's TotalInvested rather than hidden.
func (p *Position) AddShares(shares, price uint64, now time.Time) error {
	if p.Claimed {
		return ErrAlreadyClaimed
	}
	if shares == 0 {
		return ErrInvalidAmount
	}

	additional, err := fixedpoint.CheckedMul(shares, price)
	if err != nil {
		return err
	}
	newInvested, err := fixedpoint.CheckedAdd(p.TotalInvested, additional)
	if err != nil {
		return err
	}
	newShares, err := fixedpoint.CheckedAdd(p.Shares, shares)
	if err != nil {
		return err
	}

	p.AveragePrice = newInvested / newShares
	p.Shares = newShares
	p.TotalInvested = newInvested
	p.Active = true
	p.LastUpdated = now
	return nil
}

// RemoveShares disposes of amount shares at the recorded average price.
// Reducing a position never changes its cost basis; removing the final
// share zeroes the position and deactivates it.
func (p *Position) RemoveShares(amount uint64, now time.Time) error {
	if p.Claimed {
		return ErrAlreadyClaimed
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > p.Shares {
		return ErrInsufficientShares
	}

	remaining := p.Shares - amount
	if remaining == 0 {
		p.Shares = 0
		p.TotalInvested = 0
		p.Active = false
	} else {
		investmentToRemove, err := fixedpoint.CheckedMul(amount, p.AveragePrice)
		if err != nil {
			return err
		}
		newInvested, err := fixedpoint.CheckedSub(p.TotalInvested, investmentToRemove)
		if err != nil {
			return err
		}
		p.Shares = remaining
		p.TotalInvested = newInvested
	}
	p.LastUpdated = now
	return nil
}

// MarkClaimed records a settled payout. A position can be claimed at most
// once; thereafter it is immutable.
func (p *Position) MarkClaimed(winnings uint64, now time.Time) error {
	if p.Claimed {
		return ErrAlreadyClaimed
	}
	p.Claimed = true
	p.WinningsClaimed = winnings
	p.Active = false
	p.LastUpdated = now
	return nil
}

// PnL returns the signed unrealized profit at currentPrice. The current
// value saturates; it is a display quantity.
func (p *Position) PnL(currentPrice uint64) int64 {
	currentValue := fixedpoint.SatMul(p.Shares, currentPrice)
	return int64(currentValue) - int64(p.TotalInvested)
}

// ROI returns the percentage return at currentPrice, or 0 for a position
// with nothing invested.
func (p *Position) ROI(currentPrice uint64) float64 {
	if p.TotalInvested == 0 {
		return 0
	}
	return float64(p.PnL(currentPrice)) / float64(p.TotalInvested) * 100
}
