package domain

import (
	"time"

	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// MaxFeeRateBps is the highest fee a pool may charge (10%).
const MaxFeeRateBps = 1000

// feeDenominator converts basis points to a fraction.
const feeDenominator = 10000

// poolPriceScale scales the reserve-ratio price for integer precision.
const poolPriceScale = 1_000_000

// SwapDirection identifies which reserve a swap consumes.
type SwapDirection string

const (
	SwapYesToNo SwapDirection = "yes_to_no"
	SwapNoToYes SwapDirection = "no_to_yes"
)

// Valid reports whether d is a known swap direction.
func (d SwapDirection) Valid() bool {
	return d == SwapYesToNo || d == SwapNoToYes
}

// SwapQuote is the result of pricing a swap against current reserves. The
// caller executes it unchanged; the pool does not re-quote at execution.
type SwapQuote struct {
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	Direction SwapDirection
}

// LiquidityPool holds the two outcome reserves and the liquidity-token
// supply for one market. Reserve math is checked; a failed operation leaves
// the pool untouched.
type LiquidityPool struct {
	MarketID        string
	YesReserves     uint64
	NoReserves      uint64
	TotalLiquidity  uint64
	FeeRateBps      uint64
	AccumulatedFees uint64
	Active          bool
	CreatedAt       time.Time
}

// NewLiquidityPool creates an empty, active pool for a market. The fee rate
// is fixed for the pool's lifetime and must not exceed MaxFeeRateBps.
func NewLiquidityPool(marketID string, feeRateBps uint64, now time.Time) (LiquidityPool, error) {
	if feeRateBps > MaxFeeRateBps {
		return LiquidityPool{}, ErrInvalidFeeRate
	}
	return LiquidityPool{
		MarketID:   marketID,
		FeeRateBps: feeRateBps,
		Active:     true,
		CreatedAt:  now,
	}, nil
}

// AddLiquidity deposits amount into the pool, split between the two
// reserves with the odd unit going to YES, and returns the liquidity tokens
// minted. The first deposit mints tokens 1:1; later deposits mint pro rata
// against total reserves. A deposit too small to mint a whole token is
// rejected rather than absorbed.
func (p *LiquidityPool) AddLiquidity(amount uint64) (uint64, error) {
	if !p.Active {
		return 0, ErrPoolInactive
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	var tokens uint64
	if p.TotalLiquidity == 0 {
		tokens = amount
	} else {
		totalReserves, err := fixedpoint.CheckedAdd(p.YesReserves, p.NoReserves)
		if err != nil {
			return 0, err
		}
		if totalReserves == 0 {
			tokens = amount
		} else {
			tokens, err = fixedpoint.MulDiv(amount, p.TotalLiquidity, totalReserves)
			if err != nil {
				return 0, err
			}
		}
	}
	if tokens == 0 {
		return 0, ErrInsufficientLiquidity
	}

	half := amount / 2
	newYes, err := fixedpoint.CheckedAdd(p.YesReserves, amount-half)
	if err != nil {
		return 0, err
	}
	newNo, err := fixedpoint.CheckedAdd(p.NoReserves, half)
	if err != nil {
		return 0, err
	}
	newTotal, err := fixedpoint.CheckedAdd(p.TotalLiquidity, tokens)
	if err != nil {
		return 0, err
	}

	p.YesReserves = newYes
	p.NoReserves = newNo
	p.TotalLiquidity = newTotal
	return tokens, nil
}

// RemoveLiquidity burns tokens and returns the proportional share of each
// reserve.
func (p *LiquidityPool) RemoveLiquidity(tokens uint64) (yesAmount, noAmount uint64, err error) {
	if !p.Active {
		return 0, 0, ErrPoolInactive
	}
	if tokens == 0 {
		return 0, 0, ErrInvalidAmount
	}
	if tokens > p.TotalLiquidity {
		return 0, 0, ErrInsufficientLiquidity
	}

	yesAmount, err = fixedpoint.MulDiv(p.YesReserves, tokens, p.TotalLiquidity)
	if err != nil {
		return 0, 0, err
	}
	noAmount, err = fixedpoint.MulDiv(p.NoReserves, tokens, p.TotalLiquidity)
	if err != nil {
		return 0, 0, err
	}

	p.YesReserves -= yesAmount
	p.NoReserves -= noAmount
	p.TotalLiquidity -= tokens
	return yesAmount, noAmount, nil
}

// QuoteSwap prices amountIn against current reserves with the constant
// product formula, after deducting the pool fee. The quote fails rather
// than drain the entire opposite reserve.
func (p *LiquidityPool) QuoteSwap(amountIn uint64, direction SwapDirection) (SwapQuote, error) {
	if !p.Active {
		return SwapQuote{}, ErrPoolInactive
	}
	if amountIn == 0 {
		return SwapQuote{}, ErrInvalidAmount
	}
	if !direction.Valid() {
		return SwapQuote{}, ErrInvalidOutcome
	}

	reserveIn, reserveOut := p.YesReserves, p.NoReserves
	if direction == SwapNoToYes {
		reserveIn, reserveOut = p.NoReserves, p.YesReserves
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}

	fee, err := fixedpoint.MulDiv(amountIn, p.FeeRateBps, feeDenominator)
	if err != nil {
		return SwapQuote{}, err
	}
	amountInAfterFee := amountIn - fee

	// Constant product: out = inAfterFee * reserveOut / (reserveIn + inAfterFee).
	denominator, err := fixedpoint.CheckedAdd(reserveIn, amountInAfterFee)
	if err != nil {
		return SwapQuote{}, err
	}
	amountOut, err := fixedpoint.MulDiv(amountInAfterFee, reserveOut, denominator)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut >= reserveOut {
		return SwapQuote{}, ErrInsufficientLiquidity
	}

	return SwapQuote{
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
		Direction: direction,
	}, nil
}

// ExecuteSwap applies a previously obtained quote: the fee accrues, the
// incoming reserve grows by amountIn net of the fee, and the outgoing
// reserve shrinks by amountOut. The books (reserves plus accumulated fees)
// grow by exactly amountIn - amountOut, the amount that actually changed
// hands. The caller is responsible for quoting and executing under one
// serialization scope so quote and execution stay consistent.
func (p *LiquidityPool) ExecuteSwap(amountIn, amountOut uint64, direction SwapDirection) error {
	if !p.Active {
		return ErrPoolInactive
	}
	if amountIn == 0 || amountOut == 0 {
		return ErrInvalidAmount
	}

	fee, err := fixedpoint.MulDiv(amountIn, p.FeeRateBps, feeDenominator)
	if err != nil {
		return err
	}
	newFees, err := fixedpoint.CheckedAdd(p.AccumulatedFees, fee)
	if err != nil {
		return err
	}

	reserveIn, reserveOut := p.YesReserves, p.NoReserves
	if direction == SwapNoToYes {
		reserveIn, reserveOut = p.NoReserves, p.YesReserves
	}
	newIn, err := fixedpoint.CheckedAdd(reserveIn, amountIn-fee)
	if err != nil {
		return err
	}
	newOut, err := fixedpoint.CheckedSub(reserveOut, amountOut)
	if err != nil {
		return err
	}

	p.AccumulatedFees = newFees
	if direction == SwapYesToNo {
		p.YesReserves, p.NoReserves = newIn, newOut
	} else {
		p.NoReserves, p.YesReserves = newIn, newOut
	}
	return nil
}

// CurrentPrice returns the YES price implied by the reserve ratio, scaled
// by 1e6. Both reserves must be funded.
func (p *LiquidityPool) CurrentPrice() (uint64, error) {
	if p.YesReserves == 0 || p.NoReserves == 0 {
		return 0, ErrInsufficientLiquidity
	}
	total, err := fixedpoint.CheckedAdd(p.YesReserves, p.NoReserves)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDiv(p.NoReserves, poolPriceScale, total)
}

// Deactivate permanently disables mutating pool operations. Called when the
// market leaves the Active state.
func (p *LiquidityPool) Deactivate() {
	p.Active = false
}

// CollectFees returns the accumulated fees and zeroes the counter. Calling
// it again before new fees accrue returns zero.
func (p *LiquidityPool) CollectFees() uint64 {
	fees := p.AccumulatedFees
	p.AccumulatedFees = 0
	return fees
}
