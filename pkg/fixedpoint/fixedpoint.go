// Package fixedpoint provides the integer fixed-point primitives the rest
// of perpcore is built on: rounded multiply-divide, ceiling division, and
// integer square root. Every fallible operation returns a sentinel from
// pkg/types (MathOverflow/MathUnderflow) instead of panicking.
//
// Amounts that fit a single reserve or position field stay plain uint64;
// anything that accumulates across positions or time (delta_k sums, the
// funding accumulator, the bonding-curve slope) is modeled as *big.Int the
// same way nhbchain/native/lending tracks scaled debt and interest
// indexes, since the pack has no dedicated fixed-width u128/u256 library
// wired for arbitrary-rounding multiply-divide (see DESIGN.md).
package fixedpoint

import (
	"math/big"

	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Rounding selects how MulDiv and CeilDiv round a non-exact quotient.
// Per the rounding policy contract (spec §4.1): amounts leaving the pool
// always round down, amounts entering the pool always round up, so that
// k_new >= k_old holds in every swap.
type Rounding int

const (
	// RoundDown truncates toward zero (floor, for non-negative operands).
	RoundDown Rounding = iota
	// RoundUp rounds away from zero on any non-zero remainder (ceiling).
	RoundUp
)

// MulDiv computes floor(a*b/d) or ceil(a*b/d) depending on rounding, using
// a big.Int intermediate product so the multiplication never overflows
// regardless of how wide a and b are. d must be strictly positive.
func MulDiv(a, b, d *big.Int, rounding Rounding) (*big.Int, error) {
	if a == nil || b == nil || d == nil || d.Sign() <= 0 {
		return nil, types.ErrMathOverflow
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, types.ErrMathUnderflow
	}
	product := new(big.Int).Mul(a, b)
	quotient, remainder := new(big.Int).QuoRem(product, d, new(big.Int))
	if rounding == RoundUp && remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient, nil
}

// CeilDiv returns ceil(num/den). den must be strictly positive.
func CeilDiv(num, den *big.Int) (*big.Int, error) {
	return MulDiv(num, big.NewInt(1), den, RoundUp)
}

// ISqrt returns floor(sqrt(n)) via Newton's method, mirroring the
// integer_sqrt helper in the original facemelt bonding-curve program
// (original_source/programs/facemelt/src/state/bonding_curve.rs): start
// from a generous guess and iterate x_{k+1} = (x_k + n/x_k)/2 until the
// sequence stops decreasing. The iterates strictly decrease until they
// reach the floor root, so the loop always terminates.
func ISqrt(n *big.Int) (*big.Int, error) {
	if n == nil || n.Sign() < 0 {
		return nil, types.ErrMathUnderflow
	}
	if n.Sign() == 0 {
		return big.NewInt(0), nil
	}

	one := big.NewInt(1)
	two := big.NewInt(2)

	x := new(big.Int).Add(new(big.Int).Quo(n, two), one)
	y := nextGuess(n, x, two)
	for y.Cmp(x) < 0 {
		x = y
		y = nextGuess(n, x, two)
	}
	return x, nil
}

func nextGuess(n, x, two *big.Int) *big.Int {
	sum := new(big.Int).Add(x, new(big.Int).Quo(n, x))
	return sum.Quo(sum, two)
}

// BigToUint64 downcasts v to uint64, failing with MathOverflow if v does
// not fit and MathUnderflow if v is negative. Every downcast from the
// 128/256-bit accounting domain to a stored 64-bit reserve or position
// field goes through this function.
func BigToUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, types.ErrMathOverflow
	}
	if v.Sign() < 0 {
		return 0, types.ErrMathUnderflow
	}
	if v.BitLen() > 64 {
		return 0, types.ErrMathOverflow
	}
	return v.Uint64(), nil
}

// AddU64 adds two uint64 amounts, failing with MathOverflow on wraparound.
func AddU64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, types.ErrMathOverflow
	}
	return sum, nil
}

// SubU64 subtracts b from a, failing with MathUnderflow if b > a.
func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, types.ErrMathUnderflow
	}
	return a - b, nil
}

// MulU64 multiplies two uint64 amounts, failing with MathOverflow on
// wraparound.
func MulU64(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, types.ErrMathOverflow
	}
	return product, nil
}
