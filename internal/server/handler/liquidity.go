package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// LiquidityService defines the AMM operations the liquidity handler requires.
type LiquidityService interface {
	AddLiquidity(ctx context.Context, marketID, provider string, amount uint64) (uint64, domain.Event, error)
	RemoveLiquidity(ctx context.Context, marketID, provider string, tokens uint64) (uint64, domain.Event, error)
	Swap(ctx context.Context, marketID, trader string, amountIn uint64, direction domain.SwapDirection) (domain.SwapQuote, domain.Event, error)
	CollectFees(ctx context.Context, marketID, actor string) (uint64, domain.Event, error)
}

// LiquidityHandler serves AMM pool HTTP endpoints.
type LiquidityHandler struct {
	pools  LiquidityService
	events EventSink
	logger *slog.Logger
}

// NewLiquidityHandler creates a LiquidityHandler.
func NewLiquidityHandler(pools LiquidityService, events EventSink, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{
		pools:  pools,
		events: events,
		logger: logger,
	}
}

// amountRequest is the shared JSON body for liquidity amounts.
type amountRequest struct {
	Amount uint64 `json:"amount"`
}

// AddLiquidity deposits collateral into a market's pool and mints liquidity
// tokens for the provider.
// POST /api/markets/{id}/liquidity
func (h *LiquidityHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	provider, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, evt, err := h.pools.AddLiquidity(r.Context(), marketID, provider, req.Amount)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: add liquidity failed",
				slog.String("market_id", marketID),
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusCreated, map[string]any{
		"market_id": marketID,
		"tokens":    tokens,
	})
}

// removeLiquidityRequest is the JSON body for a liquidity withdrawal.
type removeLiquidityRequest struct {
	Tokens uint64 `json:"tokens"`
}

// RemoveLiquidity burns liquidity tokens and pays out the provider's share
// of both reserves.
// DELETE /api/markets/{id}/liquidity
func (h *LiquidityHandler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	provider, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req removeLiquidityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payout, evt, err := h.pools.RemoveLiquidity(r.Context(), marketID, provider, req.Tokens)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: remove liquidity failed",
				slog.String("market_id", marketID),
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"payout":    payout,
	})
}

// swapRequest is the JSON body for a share swap.
type swapRequest struct {
	AmountIn  uint64               `json:"amount_in"`
	Direction domain.SwapDirection `json:"direction"`
}

// Swap trades shares of one outcome for the other through the pool.
// POST /api/markets/{id}/swap
func (h *LiquidityHandler) Swap(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	trader, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req swapRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, evt, err := h.pools.Swap(r.Context(), marketID, trader, req.AmountIn, req.Direction)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: swap failed",
				slog.String("market_id", marketID),
				slog.String("trader", trader),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, quote)
}

// CollectFees pays accumulated swap fees out to the market creator.
// POST /api/markets/{id}/fees/collect
func (h *LiquidityHandler) CollectFees(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	act, ok := requireActor(w, r)
	if !ok {
		return
	}

	fees, evt, err := h.pools.CollectFees(r.Context(), marketID, act)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: collect fees failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"fees":      fees,
	})
}
