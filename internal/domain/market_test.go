package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mktNow = time.Unix(1_700_000_000, 0)
	mktEnd = mktNow.Add(24 * time.Hour)
)

func newTestMarket(t *testing.T) Market {
	t.Helper()
	m, err := NewMarket("mkt-1", "alice", "Will it rain tomorrow?", "Resolved by the local weather station.", "weather", mktEnd, mktNow, 10, 1_000_000)
	require.NoError(t, err)
	return m
}

func TestNewMarketValidation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		title   string
		desc    string
		end     time.Time
		wantErr error
	}{
		{name: "id too long", id: strings.Repeat("x", 51), title: "t", end: mktEnd, wantErr: ErrMarketIDTooLong},
		{name: "title too long", id: "m", title: strings.Repeat("x", 201), end: mktEnd, wantErr: ErrTitleTooLong},
		{name: "description too long", id: "m", title: "t", desc: strings.Repeat("x", 1001), end: mktEnd, wantErr: ErrDescriptionTooLong},
		{name: "end time in the past", id: "m", title: "t", end: mktNow.Add(-time.Second), wantErr: ErrInvalidEndTime},
		{name: "end time equals now", id: "m", title: "t", end: mktNow, wantErr: ErrInvalidEndTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarket(tt.id, "alice", tt.title, tt.desc, "", tt.end, mktNow, 0, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCanAcceptBets(t *testing.T) {
	m := newTestMarket(t)
	assert.NoError(t, m.CanAcceptBets(mktNow))
	assert.ErrorIs(t, m.CanAcceptBets(mktEnd), ErrMarketExpired)
	assert.ErrorIs(t, m.CanAcceptBets(mktEnd.Add(time.Hour)), ErrMarketExpired)

	m.Status = MarketStatusResolved
	assert.ErrorIs(t, m.CanAcceptBets(mktNow), ErrMarketNotActive)
}

func TestValidateBetAmount(t *testing.T) {
	m := newTestMarket(t)
	assert.ErrorIs(t, m.ValidateBetAmount(0), ErrInvalidAmount)
	assert.ErrorIs(t, m.ValidateBetAmount(5), ErrBetTooLow)
	assert.ErrorIs(t, m.ValidateBetAmount(1_000_001), ErrBetTooHigh)
	assert.NoError(t, m.ValidateBetAmount(10))
	assert.NoError(t, m.ValidateBetAmount(1_000_000))
}

func TestRecordBetCountersAndOdds(t *testing.T) {
	m := newTestMarket(t)

	m.RecordBet(300, OutcomeYes)
	m.RecordBet(100, OutcomeNo)

	assert.Equal(t, uint64(2), m.TotalBets)
	assert.Equal(t, uint64(400), m.TotalVolume)
	assert.Equal(t, uint64(400), m.TotalPool)
	assert.Equal(t, uint64(300), m.YesVolume)
	assert.Equal(t, uint64(100), m.NoVolume)
	assert.Equal(t, uint64(1), m.YesBets)
	assert.Equal(t, uint64(1), m.NoBets)

	// Volume invariant from the data model.
	assert.Equal(t, m.TotalVolume, m.YesVolume+m.NoVolume)

	assert.Equal(t, uint64(75), m.YesOdds)
	assert.Equal(t, uint64(25), m.NoOdds)
}

func TestOddsSumToHundredTieToYes(t *testing.T) {
	m := newTestMarket(t)
	// 50/50 split plus an odd remainder: yes=101, no=100 -> yes share
	// 50.24%, rounds half-up on the YES side.
	m.RecordBet(101, OutcomeYes)
	m.RecordBet(100, OutcomeNo)
	assert.Equal(t, uint64(100), m.YesOdds+m.NoOdds)

	// Exact tie: rounding goes to YES.
	m2 := newTestMarket(t)
	m2.RecordBet(1, OutcomeYes)
	m2.RecordBet(1, OutcomeNo)
	assert.Equal(t, uint64(50), m2.YesOdds)
	assert.Equal(t, uint64(50), m2.NoOdds)

	m3 := newTestMarket(t)
	m3.RecordBet(1, OutcomeYes)
	m3.RecordBet(3, OutcomeNo)
	// 25% exactly.
	assert.Equal(t, uint64(25), m3.YesOdds)
	assert.Equal(t, uint64(75), m3.NoOdds)
}

func TestResolve(t *testing.T) {
	m := newTestMarket(t)
	after := mktEnd.Add(time.Minute)

	assert.ErrorIs(t, m.Resolve(OutcomeYes, "mallory", after), ErrUnauthorized)
	assert.ErrorIs(t, m.Resolve(OutcomeYes, "alice", mktNow), ErrMarketNotEnded)
	assert.ErrorIs(t, m.Resolve(Outcome("maybe"), "alice", after), ErrInvalidOutcome)

	require.NoError(t, m.Resolve(OutcomeYes, "alice", after))
	assert.Equal(t, MarketStatusResolved, m.Status)
	require.NotNil(t, m.WinningOutcome)
	assert.Equal(t, OutcomeYes, *m.WinningOutcome)
	require.NotNil(t, m.ResolvedAt)
	assert.Equal(t, after, *m.ResolvedAt)

	// Terminal: a second resolution is rejected.
	assert.ErrorIs(t, m.Resolve(OutcomeNo, "alice", after), ErrMarketNotActive)
}

func TestCancel(t *testing.T) {
	m := newTestMarket(t)

	assert.ErrorIs(t, m.Cancel("mallory", mktNow, false), ErrUnauthorized)
	assert.ErrorIs(t, m.Cancel("alice", mktNow, true), ErrMarketHasPositions)

	require.NoError(t, m.Cancel("alice", mktNow, false))
	assert.Equal(t, MarketStatusCancelled, m.Status)
	assert.ErrorIs(t, m.Cancel("alice", mktNow, false), ErrMarketNotActive)
}

func TestWinningVolume(t *testing.T) {
	m := newTestMarket(t)
	m.RecordBet(300, OutcomeYes)
	m.RecordBet(100, OutcomeNo)

	assert.Zero(t, m.WinningVolume(), "unresolved market has no winning volume")

	require.NoError(t, m.Resolve(OutcomeNo, "alice", mktEnd))
	assert.Equal(t, uint64(100), m.WinningVolume())
}
