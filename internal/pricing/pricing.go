// Package pricing implements the pure pricing computations for the binary
// AMM: implied market price, per-trade share cost, price impact, time decay,
// and arbitrage detection. Every function here is stateless and performs no
// I/O; the service layer feeds it pool state and persists the results.
//
// Arithmetic is deliberately saturating rather than checked. These values are
// quotes and indicators, never reserve deltas, so clamping at the extremes is
// harmless; the checked policy lives in internal/fixedpoint and is applied by
// the pool and settlement code that actually moves funds.
package pricing

import (
	"github.com/zentrolabs/zentro-core/internal/fixedpoint"
)

// Basis-point scale: 10000 bps = 100%.
const (
	BpsScale = 10000

	// maxMarketPrice caps the implied probability at 99% so a market never
	// quotes a fully deterministic outcome.
	maxMarketPrice = 9900

	// maxPriceImpact caps per-trade impact at 10%.
	maxPriceImpact = 1000

	// defaultPriceImpact is charged when the pool has no liquidity to
	// measure against.
	defaultPriceImpact = 500

	// maxLiquidityFactor caps the liquidity ratio at 200%.
	maxLiquidityFactor = 200
)

// Params tunes the pricing model for a market.
type Params struct {
	BasePrice        uint64 // bps, returned when the market has no shares
	VolatilityFactor uint64
	LiquidityDepth   uint64 // target liquidity the factor is measured against
	TimeDecayFactor  uint64
}

// DefaultParams returns the standard pricing parameters: 50% base price,
// 1% volatility bump, 1M target depth.
func DefaultParams() Params {
	return Params{
		BasePrice:        5000,
		VolatilityFactor: 100,
		LiquidityDepth:   1_000_000,
		TimeDecayFactor:  50,
	}
}

// MarketPrice computes the implied YES probability in basis points from the
// share distribution, dampened by the liquidity factor and bumped by the
// volatility factor. With no shares outstanding it returns the base price.
func MarketPrice(yesShares, noShares, totalLiquidity uint64, params Params) uint64 {
	totalShares := fixedpoint.SatAdd(yesShares, noShares)
	if totalShares == 0 {
		return params.BasePrice
	}

	yesProbability := fixedpoint.SatMulDiv(yesShares, BpsScale, totalShares)

	factor := LiquidityFactor(totalLiquidity, params.LiquidityDepth)
	adjusted := applyLiquidityAdjustment(yesProbability, factor)
	final := applyVolatilityAdjustment(adjusted, params.VolatilityFactor)

	return min(final, maxMarketPrice)
}

// LiquidityFactor returns the ratio of current to target liquidity as a
// percentage, capped at 200. A zero target is neutral (100).
func LiquidityFactor(current, target uint64) uint64 {
	if target == 0 {
		return 100
	}
	ratio := fixedpoint.SatMulDiv(current, 100, target)
	return min(ratio, maxLiquidityFactor)
}

// applyLiquidityAdjustment pushes the price away from the midpoint when
// liquidity is below target: thin books exaggerate the prevailing side.
func applyLiquidityAdjustment(basePrice, liquidityFactor uint64) uint64 {
	if liquidityFactor >= 100 {
		return basePrice
	}
	adjustment := fixedpoint.SatMulDiv(100-liquidityFactor, basePrice, 1000)
	if basePrice > 5000 {
		return fixedpoint.SatAdd(basePrice, adjustment)
	}
	return fixedpoint.SatSub(basePrice, adjustment)
}

// applyVolatilityAdjustment adds a proportional volatility premium.
func applyVolatilityAdjustment(basePrice, volatilityFactor uint64) uint64 {
	adjustment := fixedpoint.SatMulDiv(volatilityFactor, basePrice, BpsScale)
	return fixedpoint.SatAdd(basePrice, adjustment)
}

// PriceImpact estimates the bps slippage a trade of shareAmount causes,
// modelled as the square root of the trade-to-liquidity ratio so marginal
// impact diminishes with size. Capped at 10%; a pool with no liquidity
// charges a flat 5%.
func PriceImpact(shareAmount, totalLiquidity uint64) uint64 {
	if totalLiquidity == 0 {
		return defaultPriceImpact
	}
	impactRatio := fixedpoint.SatMulDiv(shareAmount, BpsScale, totalLiquidity)
	return min(fixedpoint.Sqrt(impactRatio), maxPriceImpact)
}

// SharePrice computes the total cost of buying shareAmount shares on one
// side of the market: side price plus impact, times the amount, in the bps
// scale.
func SharePrice(marketPrice, shareAmount uint64, isYesShare bool, totalLiquidity uint64) uint64 {
	basePrice := marketPrice
	if !isYesShare {
		basePrice = fixedpoint.SatSub(BpsScale, marketPrice)
	}
	adjustedPrice := fixedpoint.SatAdd(basePrice, PriceImpact(shareAmount, totalLiquidity))
	return fixedpoint.SatMulDiv(adjustedPrice, shareAmount, BpsScale)
}

// TimeDecay pulls basePrice toward the 50% midpoint as expiry approaches.
// The pull grows with elapsed time and is applied toward the midpoint from
// whichever side the price sits on. Non-positive durations leave the price
// untouched.
func TimeDecay(basePrice uint64, timeRemaining, totalDuration int64, decayFactor uint64) uint64 {
	if totalDuration <= 0 || timeRemaining <= 0 {
		return basePrice
	}

	timeRatio := fixedpoint.SatMulDiv(uint64(timeRemaining), 100, uint64(totalDuration))
	decayAdjustment := fixedpoint.SatMulDiv(decayFactor, fixedpoint.SatSub(100, timeRatio), BpsScale)

	if basePrice > 5000 {
		return fixedpoint.SatSub(basePrice, decayAdjustment)
	}
	return fixedpoint.SatAdd(basePrice, decayAdjustment)
}

// Payout returns the settlement value of a winning side: 1:1 on the shares
// held when the side matches the resolved outcome, zero otherwise.
func Payout(sharesOwned uint64, marketOutcome, isYesShare bool) uint64 {
	if marketOutcome == isYesShare {
		return sharesOwned
	}
	return 0
}

// Arbitrage reports a mispricing between two markets for the same event.
// It returns aboveB=true when market A is priced above market B, the
// magnitude of the difference in bps, and ok=false when the difference does
// not exceed the threshold.
func Arbitrage(priceA, priceB, threshold uint64) (aboveB bool, diff uint64, ok bool) {
	if priceA > priceB {
		diff = priceA - priceB
	} else {
		diff = priceB - priceA
	}
	if diff <= threshold {
		return false, 0, false
	}
	return priceA > priceB, diff, true
}
