package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	GetPortfolio(ctx context.Context, user string, opts domain.ListOpts) (service.Portfolio, error)
	ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error)
}

// PositionHandler serves position and portfolio HTTP endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// GetPortfolio returns a user's positions valued at current pool prices.
// GET /api/positions?user=alice
func (h *PositionHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}

	portfolio, err := h.positions.GetPortfolio(r.Context(), user, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get portfolio failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}

	writeJSON(w, http.StatusOK, portfolio)
}

// listPositionsResponse wraps the market positions output.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// ListMarketPositions returns every position held against a market.
// GET /api/markets/{id}/positions
func (h *PositionHandler) ListMarketPositions(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	positions, err := h.positions.ListByMarket(r.Context(), marketID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market positions failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}
