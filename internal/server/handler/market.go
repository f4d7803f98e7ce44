package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, p service.CreateMarketParams) (domain.Market, domain.Event, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	ResolveMarket(ctx context.Context, marketID, actor string, outcome domain.Outcome) (domain.Event, error)
	CancelMarket(ctx context.Context, marketID, actor string) (domain.Event, error)
}

// EventSink receives the event record of a completed operation for fan-out.
type EventSink interface {
	Publish(ctx context.Context, evt domain.Event)
}

// MarketDefaults are applied to create requests that leave the corresponding
// field unset.
type MarketDefaults struct {
	FeeRateBps uint64
	MinBet     uint64
	MaxBet     uint64
}

// MarketHandler serves market lifecycle HTTP endpoints.
type MarketHandler struct {
	markets  MarketService
	events   EventSink
	defaults MarketDefaults
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, events EventSink, defaults MarketDefaults, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:  markets,
		events:   events,
		defaults: defaults,
		logger:   logger,
	}
}

// createMarketRequest is the JSON body for market creation.
type createMarketRequest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	EndTime     time.Time `json:"end_time"`
	MinBet      uint64    `json:"min_bet"`
	MaxBet      uint64    `json:"max_bet"`
	FeeRateBps  uint64    `json:"fee_rate_bps"`
}

// CreateMarket creates a market with its liquidity pool. The creator comes
// from the X-Actor header; a market ID is generated when omitted.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	creator, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createMarketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.FeeRateBps == 0 {
		req.FeeRateBps = h.defaults.FeeRateBps
	}
	if req.MinBet == 0 {
		req.MinBet = h.defaults.MinBet
	}
	if req.MaxBet == 0 {
		req.MaxBet = h.defaults.MaxBet
	}

	market, evt, err := h.markets.CreateMarket(r.Context(), service.CreateMarketParams{
		ID:          req.ID,
		Creator:     creator,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		EndTime:     req.EndTime,
		MinBet:      req.MinBet,
		MaxBet:      req.MaxBet,
		FeeRateBps:  req.FeeRateBps,
	})
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: create market failed",
				slog.String("market_id", req.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusCreated, market)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets, optionally filtered by lifecycle status.
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	status := domain.MarketStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.MarketStatusActive, domain.MarketStatusResolved, domain.MarketStatusCancelled:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	markets, err := h.markets.ListMarkets(r.Context(), status, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: get market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// resolveMarketRequest is the JSON body for market resolution.
type resolveMarketRequest struct {
	Outcome domain.Outcome `json:"outcome"`
}

// ResolveMarket resolves an ended market to its winning outcome. Only the
// market creator may resolve.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	act, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req resolveMarketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	evt, err := h.markets.ResolveMarket(r.Context(), id, act, req.Outcome)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: resolve market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "resolved",
		"market_id": id,
		"outcome":   req.Outcome,
	})
}

// CancelMarket voids a market that has no open positions. Only the creator
// may cancel.
// POST /api/markets/{id}/cancel
func (h *MarketHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	act, ok := requireActor(w, r)
	if !ok {
		return
	}

	evt, err := h.markets.CancelMarket(r.Context(), id, act)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: cancel market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "cancelled",
		"market_id": id,
	})
}
