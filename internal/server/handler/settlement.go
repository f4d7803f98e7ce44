package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

// SettlementService defines the settlement operations the handler requires.
type SettlementService interface {
	ClaimWinnings(ctx context.Context, marketID, user string) (service.ClaimResult, domain.Event, error)
	Report(ctx context.Context, marketID string) (service.SettlementReport, error)
}

// SettlementHandler serves claim and settlement-report HTTP endpoints.
type SettlementHandler struct {
	settlement SettlementService
	events     EventSink
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settlement SettlementService, events EventSink, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		events:     events,
		logger:     logger,
	}
}

// ClaimWinnings pays out the claimant's pro-rata share of a resolved
// market's pool. The claimant comes from the X-Actor header.
// POST /api/markets/{id}/claim
func (h *SettlementHandler) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	user, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, evt, err := h.settlement.ClaimWinnings(r.Context(), marketID, user)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: claim winnings failed",
				slog.String("market_id", marketID),
				slog.String("user", user),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusOK, result)
}

// SettlementReport returns the payout breakdown of a resolved market.
// GET /api/markets/{id}/settlement
func (h *SettlementHandler) SettlementReport(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	report, err := h.settlement.Report(r.Context(), marketID)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: settlement report failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}
