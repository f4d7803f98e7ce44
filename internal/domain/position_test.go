package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var posNow = time.Unix(1_700_000_000, 0)

func TestNewPosition(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 100, 5000, posNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), pos.Shares)
	assert.Equal(t, uint64(5000), pos.AveragePrice)
	assert.Equal(t, uint64(500_000), pos.TotalInvested)
	assert.True(t, pos.Active)
	assert.False(t, pos.Claimed)

	_, err = NewPosition("alice", "mkt-1", OutcomeYes, 0, 5000, posNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewPosition("alice", "mkt-1", Outcome("maybe"), 10, 5000, posNow)
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestAddSharesWeightedAverage(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 100, 5000, posNow)
	require.NoError(t, err)

	// 100@5000 + 50@7000 = 850000 invested over 150 shares -> avg 5666.
	require.NoError(t, pos.AddShares(50, 7000, posNow.Add(time.Minute)))
	assert.Equal(t, uint64(150), pos.Shares)
	assert.Equal(t, uint64(850_000), pos.TotalInvested)
	assert.Equal(t, uint64(5666), pos.AveragePrice)
	assert.Equal(t, posNow.Add(time.Minute), pos.LastUpdated)
}

func TestRemoveSharesKeepsCostBasis(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 150, 5666, posNow)
	require.NoError(t, err)

	require.NoError(t, pos.RemoveShares(50, posNow))
	assert.Equal(t, uint64(100), pos.Shares)
	assert.Equal(t, uint64(5666), pos.AveragePrice, "reducing never changes the average")
	assert.Equal(t, uint64(150*5666-50*5666), pos.TotalInvested)
	assert.True(t, pos.Active)
}

func TestRemoveAllSharesDeactivates(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeNo, 100, 5000, posNow)
	require.NoError(t, err)

	require.NoError(t, pos.RemoveShares(100, posNow))
	assert.Zero(t, pos.Shares)
	assert.Zero(t, pos.TotalInvested)
	assert.False(t, pos.Active)
}

func TestRemoveSharesInsufficient(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 10, 5000, posNow)
	require.NoError(t, err)
	assert.ErrorIs(t, pos.RemoveShares(11, posNow), ErrInsufficientShares)
}

func TestClaimedPositionIsImmutable(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 100, 5000, posNow)
	require.NoError(t, err)

	require.NoError(t, pos.MarkClaimed(123_456, posNow))
	assert.True(t, pos.Claimed)
	assert.Equal(t, uint64(123_456), pos.WinningsClaimed)

	assert.ErrorIs(t, pos.MarkClaimed(1, posNow), ErrAlreadyClaimed)
	assert.ErrorIs(t, pos.AddShares(10, 5000, posNow), ErrAlreadyClaimed)
	assert.ErrorIs(t, pos.RemoveShares(10, posNow), ErrAlreadyClaimed)
}

func TestPnLAndROI(t *testing.T) {
	pos, err := NewPosition("alice", "mkt-1", OutcomeYes, 100, 5000, posNow)
	require.NoError(t, err)

	assert.Equal(t, int64(100_000), pos.PnL(6000))
	assert.Equal(t, int64(-100_000), pos.PnL(4000))
	assert.InDelta(t, 20.0, pos.ROI(6000), 0.001)
	assert.InDelta(t, -20.0, pos.ROI(4000), 0.001)

	empty := Position{}
	assert.Equal(t, 0.0, empty.ROI(5000))
}

func TestInvestedInvariantAfterMutations(t *testing.T) {
	pos, err := NewPosition("bob", "mkt-2", OutcomeNo, 7, 3333, posNow)
	require.NoError(t, err)

	require.NoError(t, pos.AddShares(13, 4747, posNow))
	require.NoError(t, pos.AddShares(29, 1111, posNow))
	require.NoError(t, pos.RemoveShares(11, posNow))

	// Integer division floors the average, so invested can exceed
	// shares*average by at most the division remainder.
	assert.GreaterOrEqual(t, pos.TotalInvested, pos.Shares*pos.AveragePrice)
	assert.Less(t, pos.TotalInvested-pos.Shares*pos.AveragePrice, uint64(49),
		"drift bounded by the share count at the last average recomputation")
}
