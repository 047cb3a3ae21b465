// Package curve implements the pre-graduation linear bonding curve: the
// integrated price curve a newly launched token trades on before enough
// SOL or tokens have changed hands to seed the constant-product pool in
// pkg/pool.
package curve

import (
	"math/big"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Status is the bonding curve's lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusGraduated
)

// Curve holds the linear bonding-curve state for one token launch.
// SlopeM is fixed-point scaled by config.SCALE: price(q) = SlopeM*q/SCALE.
type Curve struct {
	SlopeM           *big.Int
	TokensSold       uint64
	SolRaised        uint64
	TargetSol        uint64
	TargetTokensSold uint64
	Status           Status
}

// New derives the slope from the graduation targets and returns a fresh,
// Active curve with zero tokens sold and zero SOL raised.
//
// m = 2*target_sol*SCALE / target_tokens_sold^2
func New(totalSupply, targetSol, targetTokensSold uint64) (*Curve, error) {
	if err := types.ValidateBondingCurveParams(totalSupply, targetSol, targetTokensSold); err != nil {
		return nil, err
	}

	numerator := new(big.Int).Mul(big.NewInt(2), new(big.Int).SetUint64(targetSol))
	numerator.Mul(numerator, config.SCALE)
	denominator := new(big.Int).SetUint64(targetTokensSold)
	denominator.Mul(denominator, denominator)

	slope, err := fixedpoint.MulDiv(numerator, big.NewInt(1), denominator, fixedpoint.RoundDown)
	if err != nil {
		return nil, err
	}

	return &Curve{
		SlopeM:           slope,
		TargetSol:        targetSol,
		TargetTokensSold: targetTokensSold,
		Status:           StatusActive,
	}, nil
}

// BuyResult is the outcome of a curve buy: the tokens minted to the buyer,
// any unspent SOL refunded because the buy was capped at the graduation
// target, and whether this buy graduated the curve.
type BuyResult struct {
	TokensOut uint64
	Refund    uint64
	Graduated bool
	SolSpent  uint64
}

// Buy quotes and applies a curve purchase of solIn lamports, capping at
// TargetTokensSold and refunding the unspent remainder when the purchase
// would overshoot it. It mutates c.TokensSold/SolRaised/Status in place.
func (c *Curve) Buy(solIn uint64) (BuyResult, error) {
	if c.Status != StatusActive {
		return BuyResult{}, types.ErrBondingCurveAlreadyGraduated
	}
	if solIn == 0 {
		return BuyResult{}, types.ErrZeroSwapAmount
	}

	q1 := new(big.Int).SetUint64(c.TokensSold)

	// q2 = isqrt(q1^2 + 2*sol_in*SCALE/m)
	inner := new(big.Int).Mul(big.NewInt(2), new(big.Int).SetUint64(solIn))
	inner.Mul(inner, config.SCALE)
	inner, err := fixedpoint.MulDiv(inner, big.NewInt(1), c.SlopeM, fixedpoint.RoundDown)
	if err != nil {
		return BuyResult{}, err
	}
	q1Sq := new(big.Int).Mul(q1, q1)
	radicand := new(big.Int).Add(q1Sq, inner)
	q2, err := fixedpoint.ISqrt(radicand)
	if err != nil {
		return BuyResult{}, err
	}

	tokensOut := new(big.Int).Sub(q2, q1)
	target := new(big.Int).SetUint64(c.TargetTokensSold)
	solSpent := solIn
	refund := uint64(0)

	newSold := new(big.Int).Add(q1, tokensOut)
	if newSold.Cmp(target) > 0 {
		q2 = target
		tokensOut = new(big.Int).Sub(target, q1)

		// sol_spent = m*(q2^2 - q1^2)/(2*SCALE), capped at the target.
		q2Sq := new(big.Int).Mul(q2, q2)
		diff := new(big.Int).Sub(q2Sq, q1Sq)
		numerator := new(big.Int).Mul(c.SlopeM, diff)
		twoScale := new(big.Int).Mul(big.NewInt(2), config.SCALE)
		spent, err := fixedpoint.MulDiv(numerator, big.NewInt(1), twoScale, fixedpoint.RoundDown)
		if err != nil {
			return BuyResult{}, err
		}
		solSpent, err = fixedpoint.BigToUint64(spent)
		if err != nil {
			return BuyResult{}, err
		}
		if solSpent > solIn {
			solSpent = solIn
		}
		refund = solIn - solSpent
	}

	tokensOutU64, err := fixedpoint.BigToUint64(tokensOut)
	if err != nil {
		return BuyResult{}, err
	}

	c.TokensSold += tokensOutU64
	c.SolRaised += solSpent

	graduated := c.TokensSold >= c.TargetTokensSold || c.SolRaised >= c.TargetSol
	if graduated {
		c.Status = StatusGraduated
	}

	return BuyResult{
		TokensOut: tokensOutU64,
		Refund:    refund,
		Graduated: graduated,
		SolSpent:  solSpent,
	}, nil
}

// Sell quotes and applies a curve sale of tokensIn token units. Sells never
// graduate the curve.
func (c *Curve) Sell(tokensIn uint64) (uint64, error) {
	if c.Status != StatusActive {
		return 0, types.ErrBondingCurveAlreadyGraduated
	}
	if tokensIn == 0 {
		return 0, types.ErrZeroSwapAmount
	}
	if tokensIn > c.TokensSold {
		return 0, types.ErrInsufficientTokensSold
	}

	q1 := new(big.Int).SetUint64(c.TokensSold)
	q2 := new(big.Int).Sub(q1, new(big.Int).SetUint64(tokensIn))

	q1Sq := new(big.Int).Mul(q1, q1)
	q2Sq := new(big.Int).Mul(q2, q2)
	diff := new(big.Int).Sub(q1Sq, q2Sq)
	numerator := new(big.Int).Mul(c.SlopeM, diff)
	twoScale := new(big.Int).Mul(big.NewInt(2), config.SCALE)

	solOutBig, err := fixedpoint.MulDiv(numerator, big.NewInt(1), twoScale, fixedpoint.RoundDown)
	if err != nil {
		return 0, err
	}
	solOut, err := fixedpoint.BigToUint64(solOutBig)
	if err != nil {
		return 0, err
	}
	if solOut > c.SolRaised {
		return 0, types.ErrInsufficientCurveSol
	}

	c.TokensSold -= tokensIn
	c.SolRaised -= solOut
	return solOut, nil
}
