package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/service"
)

type fakeMarketService struct {
	created service.CreateMarketParams
	market  domain.Market
	err     error
}

func (f *fakeMarketService) CreateMarket(_ context.Context, p service.CreateMarketParams) (domain.Market, domain.Event, error) {
	f.created = p
	if f.err != nil {
		return domain.Market{}, domain.Event{}, f.err
	}
	m := f.market
	m.ID = p.ID
	return m, domain.Event{Type: domain.EventMarketCreated, MarketID: p.ID}, nil
}

func (f *fakeMarketService) GetMarket(_ context.Context, id string) (domain.Market, error) {
	if f.err != nil {
		return domain.Market{}, f.err
	}
	m := f.market
	m.ID = id
	return m, nil
}

func (f *fakeMarketService) ListMarkets(_ context.Context, _ domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	return nil, f.err
}

func (f *fakeMarketService) ResolveMarket(_ context.Context, marketID, _ string, _ domain.Outcome) (domain.Event, error) {
	if f.err != nil {
		return domain.Event{}, f.err
	}
	return domain.Event{Type: domain.EventMarketResolved, MarketID: marketID}, nil
}

func (f *fakeMarketService) CancelMarket(_ context.Context, marketID, _ string) (domain.Event, error) {
	if f.err != nil {
		return domain.Event{}, f.err
	}
	return domain.Event{Type: domain.EventMarketCancelled, MarketID: marketID}, nil
}

type capturingSink struct {
	events []domain.Event
}

func (s *capturingSink) Publish(_ context.Context, evt domain.Event) {
	s.events = append(s.events, evt)
}

func newMarketHandler(svc *fakeMarketService, sink *capturingSink) *MarketHandler {
	return NewMarketHandler(svc, sink, MarketDefaults{
		FeeRateBps: 100,
		MinBet:     10,
	}, testLogger())
}

func TestCreateMarketAppliesDefaults(t *testing.T) {
	svc := &fakeMarketService{}
	sink := &capturingSink{}
	h := newMarketHandler(svc, sink)

	body := fmt.Sprintf(`{"title":"Will it rain?","end_time":%q}`,
		time.Now().Add(48*time.Hour).Format(time.RFC3339))
	r := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(body))
	r.Header.Set(HeaderActor, "alice")
	w := httptest.NewRecorder()

	h.CreateMarket(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", svc.created.Creator)
	assert.NotEmpty(t, svc.created.ID, "missing id should be generated")
	assert.Equal(t, uint64(100), svc.created.FeeRateBps)
	assert.Equal(t, uint64(10), svc.created.MinBet)

	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventMarketCreated, sink.events[0].Type)
}

func TestCreateMarketRequiresActor(t *testing.T) {
	h := newMarketHandler(&fakeMarketService{}, &capturingSink{})

	r := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(`{"title":"x"}`))
	w := httptest.NewRecorder()

	h.CreateMarket(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateMarketRequiresTitle(t *testing.T) {
	h := newMarketHandler(&fakeMarketService{}, &capturingSink{})

	r := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(`{}`))
	r.Header.Set(HeaderActor, "alice")
	w := httptest.NewRecorder()

	h.CreateMarket(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMarketNotFound(t *testing.T) {
	svc := &fakeMarketService{err: fmt.Errorf("market_service: load market m1: %w", domain.ErrNotFound)}
	h := newMarketHandler(svc, &capturingSink{})

	r := httptest.NewRequest(http.MethodGet, "/api/markets/m1", nil)
	r.SetPathValue("id", "m1")
	w := httptest.NewRecorder()

	h.GetMarket(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveMarketUnauthorized(t *testing.T) {
	svc := &fakeMarketService{err: fmt.Errorf("market_service: resolve: %w", domain.ErrUnauthorized)}
	sink := &capturingSink{}
	h := newMarketHandler(svc, sink)

	r := httptest.NewRequest(http.MethodPost, "/api/markets/m1/resolve",
		strings.NewReader(`{"outcome":"yes"}`))
	r.SetPathValue("id", "m1")
	r.Header.Set(HeaderActor, "mallory")
	w := httptest.NewRecorder()

	h.ResolveMarket(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, sink.events, "no event on failure")
}

func TestListMarketsRejectsUnknownStatus(t *testing.T) {
	h := newMarketHandler(&fakeMarketService{}, &capturingSink{})

	r := httptest.NewRequest(http.MethodGet, "/api/markets?status=pending", nil)
	w := httptest.NewRecorder()

	h.ListMarkets(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMarketsEmptyIsArray(t *testing.T) {
	h := newMarketHandler(&fakeMarketService{}, &capturingSink{})

	r := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	w := httptest.NewRecorder()

	h.ListMarkets(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp listMarketsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Markets)
	assert.Equal(t, 50, resp.Limit)
}
