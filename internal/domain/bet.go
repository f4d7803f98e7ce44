package domain

import "time"

// Bet is the immutable audit record of a single wager: what was paid, which
// side, and how many shares it bought at what quoted price.
type Bet struct {
	ID       string
	MarketID string
	Bettor   string
	Amount   uint64
	Outcome  Outcome
	Shares   uint64
	Price    uint64 // quoted share price in bps at execution time
	PlacedAt time.Time
}
