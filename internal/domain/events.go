package domain

import "time"

// Event is the structured notification record every successful operation
// returns. The core never publishes these itself; the app layer forwards
// them to the signal bus and any registered notifier.
type Event struct {
	Type     string         `json:"type"`
	MarketID string         `json:"market_id"`
	Actor    string         `json:"actor"`
	At       time.Time      `json:"at"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// Event types, one per public operation.
const (
	EventMarketCreated    = "market_created"
	EventBetPlaced        = "bet_placed"
	EventLiquidityAdded   = "liquidity_added"
	EventLiquidityRemoved = "liquidity_removed"
	EventSwapExecuted     = "swap_executed"
	EventMarketResolved   = "market_resolved"
	EventMarketCancelled  = "market_cancelled"
	EventWinningsClaimed  = "winnings_claimed"
	EventFeesCollected    = "fees_collected"
)

// NewEvent builds an event record with the given detail payload.
func NewEvent(eventType, marketID, actor string, at time.Time, detail map[string]any) Event {
	return Event{
		Type:     eventType,
		MarketID: marketID,
		Actor:    actor,
		At:       at,
		Detail:   detail,
	}
}
