package domain

import (
	"time"

	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// Bounds on market text fields.
const (
	MaxMarketIDLen    = 50
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// MarketStatus represents the lifecycle state of a market. A market starts
// Active and transitions exactly once to Resolved or Cancelled.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "active"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Outcome is one of the two sides of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether o is one of the two supported outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// IsYes reports whether o is the YES side.
func (o Outcome) IsYes() bool {
	return o == OutcomeYes
}

// Opposite returns the other side of the market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// Market is a binary-outcome prediction market. All amounts are integral
// units of the settlement currency; odds are whole percentages.
type Market struct {
	ID          string
	Creator     string
	Title       string
	Description string
	Category    string

	CreatedAt  time.Time
	EndTime    time.Time
	ResolvedAt *time.Time

	Status         MarketStatus
	WinningOutcome *Outcome

	TotalBets   uint64
	TotalVolume uint64
	YesVolume   uint64
	NoVolume    uint64
	YesBets     uint64
	NoBets      uint64

	// Odds are display-only whole percentages; YesOdds + NoOdds == 100,
	// with the rounding tie going to YES.
	YesOdds uint64
	NoOdds  uint64

	MinBet uint64
	MaxBet uint64

	TotalPool    uint64
	TotalClaimed uint64
}

// NewMarket validates creation input and returns an Active market. It fails
// with the corresponding validation sentinel when a bound is violated.
func NewMarket(id, creator, title, description, category string, endTime, now time.Time, minBet, maxBet uint64) (Market, error) {
	if len(id) > MaxMarketIDLen {
		return Market{}, ErrMarketIDTooLong
	}
	if len(title) > MaxTitleLen {
		return Market{}, ErrTitleTooLong
	}
	if len(description) > MaxDescriptionLen {
		return Market{}, ErrDescriptionTooLong
	}
	if !endTime.After(now) {
		return Market{}, ErrInvalidEndTime
	}

	return Market{
		ID:          id,
		Creator:     creator,
		Title:       title,
		Description: description,
		Category:    category,
		CreatedAt:   now,
		EndTime:     endTime,
		Status:      MarketStatusActive,
		YesOdds:     50,
		NoOdds:      50,
		MinBet:      minBet,
		MaxBet:      maxBet,
	}, nil
}

// CanAcceptBets reports whether the market admits mutating bet, liquidity,
// and swap operations at the given time. It returns the gating error when
// the market cannot.
func (m *Market) CanAcceptBets(now time.Time) error {
	if m.Status != MarketStatusActive {
		return ErrMarketNotActive
	}
	if !now.Before(m.EndTime) {
		return ErrMarketExpired
	}
	return nil
}

// ValidateBetAmount checks a wager against the market's per-bet bounds.
// A zero MaxBet disables the upper bound.
func (m *Market) ValidateBetAmount(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount < m.MinBet {
		return ErrBetTooLow
	}
	if m.MaxBet > 0 && amount > m.MaxBet {
		return ErrBetTooHigh
	}
	return nil
}

// RecordBet updates the aggregate counters and implied odds for a wager.
// Counter math saturates: these are display aggregates, and a clamped
// counter must never abort a bet whose funds already moved.
func (m *Market) RecordBet(amount uint64, outcome Outcome) {
	m.TotalBets++
	m.TotalVolume = fixedpoint.SatAdd(m.TotalVolume, amount)
	m.TotalPool = fixedpoint.SatAdd(m.TotalPool, amount)

	if outcome.IsYes() {
		m.YesVolume = fixedpoint.SatAdd(m.YesVolume, amount)
		m.YesBets++
	} else {
		m.NoVolume = fixedpoint.SatAdd(m.NoVolume, amount)
		m.NoBets++
	}

	m.recalculateOdds()
}

// recalculateOdds derives whole-percent odds from the volume split. Rounding
// is half-up on the YES side so the tie goes to YES and the two always sum
// to 100.
func (m *Market) recalculateOdds() {
	total := fixedpoint.SatAdd(m.YesVolume, m.NoVolume)
	if total == 0 {
		return
	}
	scaled := fixedpoint.SatAdd(fixedpoint.SatMul(m.YesVolume, 100), total/2)
	yes := scaled / total
	if yes > 100 {
		yes = 100
	}
	m.YesOdds = yes
	m.NoOdds = 100 - yes
}

// Resolve transitions the market to Resolved with the winning outcome.
// Only the creator may resolve, only after EndTime, and only while Active.
func (m *Market) Resolve(outcome Outcome, actor string, now time.Time) error {
	if m.Status != MarketStatusActive {
		return ErrMarketNotActive
	}
	if actor != m.Creator {
		return ErrUnauthorized
	}
	if now.Before(m.EndTime) {
		return ErrMarketNotEnded
	}
	if !outcome.Valid() {
		return ErrInvalidOutcome
	}

	m.Status = MarketStatusResolved
	m.WinningOutcome = &outcome
	t := now
	m.ResolvedAt = &t
	return nil
}

// Cancel transitions the market to Cancelled. Only the creator may cancel,
// only while Active, and never while unclaimed positions hold a stake.
func (m *Market) Cancel(actor string, now time.Time, hasOpenPositions bool) error {
	if m.Status != MarketStatusActive {
		return ErrMarketNotActive
	}
	if actor != m.Creator {
		return ErrUnauthorized
	}
	if hasOpenPositions {
		return ErrMarketHasPositions
	}

	m.Status = MarketStatusCancelled
	t := now
	m.ResolvedAt = &t
	return nil
}

// WinningVolume returns the total volume wagered on the resolved outcome.
func (m *Market) WinningVolume() uint64 {
	if m.WinningOutcome == nil {
		return 0
	}
	if m.WinningOutcome.IsYes() {
		return m.YesVolume
	}
	return m.NoVolume
}
