// Package fixedpoint provides overflow-safe uint64 arithmetic for the
// settlement core. Fund-moving computations use the checked variants, which
// fail instead of wrapping; display-only quantities (odds, indicative prices)
// use the saturating variants. The two policies coexist on purpose: a quote
// that clamps is cosmetic, a reserve that clamps is an accounting bug.
package fixedpoint

import (
	"errors"
	"math"
	"math/bits"
)

// ErrOverflow is returned by the checked operations when a result does not
// fit in 64 bits or a divisor is zero.
var ErrOverflow = errors.New("fixedpoint: arithmetic overflow")

// CheckedAdd returns a + b, or ErrOverflow if the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a - b, or ErrOverflow if b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// CheckedMul returns a * b, or ErrOverflow if the product exceeds 64 bits.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// MulDiv computes a * b / den with a full 128-bit intermediate product, so
// the multiplication never wraps even when a*b exceeds 64 bits. It returns
// ErrOverflow when den is zero or the quotient itself does not fit in 64
// bits.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		// Quotient would need more than 64 bits.
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// SatAdd returns a + b, clamped to MaxUint64.
func SatAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// SatSub returns a - b, clamped to zero.
func SatSub(a, b uint64) uint64 {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0
	}
	return diff
}

// SatMul returns a * b, clamped to MaxUint64.
func SatMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// SatMulDiv computes a * b / den with a 128-bit intermediate, clamping the
// quotient to MaxUint64. A zero denominator yields zero.
func SatMulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo
}

// Sqrt returns the integer square root of n using Newton's method. The
// iteration strictly decreases and terminates once y >= x.
func Sqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := x/2 + 1 // initial guess >= sqrt(n), avoids x+1 wrapping at MaxUint64
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
