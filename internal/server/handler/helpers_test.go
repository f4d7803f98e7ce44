package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"bet too low", domain.ErrBetTooLow, http.StatusBadRequest},
		{"market not active", domain.ErrMarketNotActive, http.StatusConflict},
		{"already claimed", domain.ErrAlreadyClaimed, http.StatusConflict},
		{"lock held", domain.ErrLockHeld, http.StatusConflict},
		{"insufficient shares", domain.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{"overflow", domain.ErrArithmeticOverflow, http.StatusUnprocessableEntity},
		{"no winnings", domain.ErrNoWinningsToClaim, http.StatusUnprocessableEntity},
		{"unknown", errors.New("pg: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			got := writeDomainError(w, fmt.Errorf("service: op: %w", tc.err))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeDomainError(w, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestParseListOptsBounds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/bets?limit=9999&offset=20", nil)
	opts := parseListOpts(r)
	assert.Equal(t, 500, opts.Limit)
	assert.Equal(t, 20, opts.Offset)

	r = httptest.NewRequest(http.MethodGet, "/api/bets?limit=-3", nil)
	opts = parseListOpts(r)
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, 0, opts.Offset)
}
