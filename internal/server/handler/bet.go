package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

// BetService defines the wagering methods the bet handler requires.
type BetService interface {
	PlaceBet(ctx context.Context, marketID, bettor string, amount uint64, outcome domain.Outcome) (service.BetResult, domain.Event, error)
}

// BetLister reads recorded bets.
type BetLister interface {
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error)
	ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Bet, error)
}

// BetHandler serves wagering HTTP endpoints.
type BetHandler struct {
	bets   BetService
	lister BetLister
	events EventSink
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets BetService, lister BetLister, events EventSink, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		lister: lister,
		events: events,
		logger: logger,
	}
}

// placeBetRequest is the JSON body for placing a bet.
type placeBetRequest struct {
	Amount  uint64         `json:"amount"`
	Outcome domain.Outcome `json:"outcome"`
}

// placeBetResponse reports the recorded bet, the updated position, and the
// recomputed market odds.
type placeBetResponse struct {
	Bet      domain.Bet      `json:"bet"`
	Position domain.Position `json:"position"`
	YesOdds  uint64          `json:"yes_odds"`
	NoOdds   uint64          `json:"no_odds"`
}

// PlaceBet wagers on one outcome of an active market. The bettor comes from
// the X-Actor header.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	bettor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req placeBetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, evt, err := h.bets.PlaceBet(r.Context(), marketID, bettor, req.Amount, req.Outcome)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: place bet failed",
				slog.String("market_id", marketID),
				slog.String("bettor", bettor),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	h.events.Publish(r.Context(), evt)
	writeJSON(w, http.StatusCreated, placeBetResponse{
		Bet:      result.Bet,
		Position: result.Position,
		YesOdds:  result.YesOdds,
		NoOdds:   result.NoOdds,
	})
}

// listBetsResponse wraps the bet list output.
type listBetsResponse struct {
	Bets   []domain.Bet `json:"bets"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListMarketBets returns the bets recorded against a market, newest first.
// GET /api/markets/{id}/bets
func (h *BetHandler) ListMarketBets(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	opts := parseListOpts(r)

	bets, err := h.lister.ListByMarket(r.Context(), marketID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market bets failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	if bets == nil {
		bets = []domain.Bet{}
	}

	writeJSON(w, http.StatusOK, listBetsResponse{Bets: bets, Limit: opts.Limit, Offset: opts.Offset})
}

// ListUserBets returns a user's bet history across markets.
// GET /api/bets?user=alice
func (h *BetHandler) ListUserBets(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}
	opts := parseListOpts(r)

	bets, err := h.lister.ListByUser(r.Context(), user, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list user bets failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	if bets == nil {
		bets = []domain.Bet{}
	}

	writeJSON(w, http.StatusOK, listBetsResponse{Bets: bets, Limit: opts.Limit, Offset: opts.Offset})
}
