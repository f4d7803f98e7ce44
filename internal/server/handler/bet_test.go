package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

type fakeBetService struct {
	result service.BetResult
	err    error

	gotMarket  string
	gotBettor  string
	gotAmount  uint64
	gotOutcome domain.Outcome
}

func (f *fakeBetService) PlaceBet(_ context.Context, marketID, bettor string, amount uint64, outcome domain.Outcome) (service.BetResult, domain.Event, error) {
	f.gotMarket = marketID
	f.gotBettor = bettor
	f.gotAmount = amount
	f.gotOutcome = outcome
	if f.err != nil {
		return service.BetResult{}, domain.Event{}, f.err
	}
	return f.result, domain.Event{Type: domain.EventBetPlaced, MarketID: marketID, Actor: bettor}, nil
}

type fakeBetLister struct {
	bets []domain.Bet
	err  error
}

func (f *fakeBetLister) ListByMarket(_ context.Context, _ string, _ domain.ListOpts) ([]domain.Bet, error) {
	return f.bets, f.err
}

func (f *fakeBetLister) ListByUser(_ context.Context, _ string, _ domain.ListOpts) ([]domain.Bet, error) {
	return f.bets, f.err
}

func TestPlaceBet(t *testing.T) {
	svc := &fakeBetService{result: service.BetResult{
		Bet:     domain.Bet{ID: "b1", MarketID: "m1", Bettor: "bob"},
		YesOdds: 60,
		NoOdds:  40,
	}}
	sink := &capturingSink{}
	h := NewBetHandler(svc, &fakeBetLister{}, sink, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets",
		strings.NewReader(`{"amount":250,"outcome":"yes"}`))
	r.SetPathValue("id", "m1")
	r.Header.Set(HeaderActor, "bob")
	w := httptest.NewRecorder()

	h.PlaceBet(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "m1", svc.gotMarket)
	assert.Equal(t, "bob", svc.gotBettor)
	assert.Equal(t, uint64(250), svc.gotAmount)
	assert.Equal(t, domain.OutcomeYes, svc.gotOutcome)

	var resp placeBetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b1", resp.Bet.ID)
	assert.Equal(t, uint64(60), resp.YesOdds)

	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventBetPlaced, sink.events[0].Type)
}

func TestPlaceBetBelowMinimum(t *testing.T) {
	svc := &fakeBetService{err: fmt.Errorf("market_service: place bet: %w", domain.ErrBetTooLow)}
	sink := &capturingSink{}
	h := NewBetHandler(svc, &fakeBetLister{}, sink, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets",
		strings.NewReader(`{"amount":1,"outcome":"no"}`))
	r.SetPathValue("id", "m1")
	r.Header.Set(HeaderActor, "bob")
	w := httptest.NewRecorder()

	h.PlaceBet(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sink.events)
}

func TestListUserBetsRequiresUser(t *testing.T) {
	h := NewBetHandler(&fakeBetService{}, &fakeBetLister{}, &capturingSink{}, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/bets", nil)
	w := httptest.NewRecorder()

	h.ListUserBets(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
