package domain

import (
	"errors"

	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// Sentinel errors, grouped by failure class. The server layer maps these
// classes onto HTTP status codes; the core never retries any of them.

// Validation errors: the caller supplied bad input.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidOutcome     = errors.New("invalid outcome")
	ErrInvalidFeeRate     = errors.New("fee rate exceeds 1000 bps")
	ErrInvalidEndTime     = errors.New("end time must be in the future")
	ErrTitleTooLong       = errors.New("market title too long")
	ErrDescriptionTooLong = errors.New("market description too long")
	ErrMarketIDTooLong    = errors.New("market id too long")
	ErrBetTooLow          = errors.New("bet amount below market minimum")
	ErrBetTooHigh         = errors.New("bet amount above market maximum")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// State-conflict errors: the market or position is in the wrong lifecycle
// state for the requested operation.
var (
	ErrMarketNotActive    = errors.New("market is not active")
	ErrMarketNotResolved  = errors.New("market is not resolved")
	ErrMarketExpired      = errors.New("prediction deadline has passed")
	ErrMarketNotEnded     = errors.New("market resolution time not reached")
	ErrMarketHasPositions = errors.New("market has active positions")
	ErrAlreadyClaimed     = errors.New("winnings already claimed")
	ErrPoolInactive       = errors.New("liquidity pool is inactive")
)

// Authorization errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrArithmeticOverflow is the fixedpoint overflow sentinel re-exported at
// the domain level, so callers can test fund-math failures with a single
// errors.Is regardless of which layer detected them.
var ErrArithmeticOverflow = fixedpoint.ErrOverflow

// Resource-insufficiency errors.
var (
	ErrInsufficientLiquidity    = errors.New("insufficient liquidity")
	ErrInsufficientVaultBalance = errors.New("insufficient vault balance")
	ErrNotWinningPosition       = errors.New("position is not on the winning outcome")
	ErrNoWinningShares          = errors.New("no winning shares outstanding")
	ErrNoWinningsToClaim        = errors.New("no winnings to claim")
)

// Infrastructure errors shared by the store and cache adapters.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
)
