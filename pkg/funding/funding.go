// Package funding implements the time-driven amortization of outstanding
// leveraged debt: advancing the pool's funding accumulator, distributing
// funding fees into the effective reserves, and computing a position's
// remaining factor at any later time.
package funding

import (
	"math/big"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/pool"
)

// ratioScale (10^6) is the constant both total Δk and effective k are
// integer-divided by before the ratio is computed.
var ratioScale = new(big.Int).SetUint64(1_000_000)

// Advance brings p's funding accumulator up to date as of now, amortizing
// outstanding Δk proportionally to elapsed time and distributing fees into
// the effective reserves. It is a no-op if now has not advanced past
// LastUpdateTimestamp, and a timestamp-only update if no Δk is outstanding.
// Every mutating orchestrator operation calls this first.
func Advance(p *pool.Pool, now int64) error {
	deltaT := now - p.LastUpdateTimestamp
	if deltaT <= 0 {
		return nil
	}

	totalDeltaK := p.TotalDeltaK()
	if totalDeltaK.Sign() == 0 {
		p.LastUpdateTimestamp = now
		return nil
	}

	effectiveK := p.EffectiveK()
	if effectiveK.Sign() == 0 {
		p.LastUpdateTimestamp = now
		return nil
	}

	// ratio = total_delta_k / effective_k, both pre-scaled down by
	// ratioScale to keep the intermediate product in range when squared.
	scaledDeltaK := new(big.Int).Div(totalDeltaK, ratioScale)
	scaledK := new(big.Int).Div(effectiveK, ratioScale)
	if scaledK.Sign() == 0 {
		scaledK = big.NewInt(1)
	}

	ratio, err := fixedpoint.MulDiv(scaledDeltaK, config.PRECISION, scaledK, fixedpoint.RoundDown)
	if err != nil {
		return err
	}

	// funding_rate = C * ratio^2 / PRECISION (ratio is PRECISION-scaled,
	// so squaring it needs one division by PRECISION to stay PRECISION-scaled).
	ratioSq := new(big.Int).Mul(ratio, ratio)
	ratioSqScaled, err := fixedpoint.MulDiv(ratioSq, big.NewInt(1), config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return err
	}
	fundingRate, err := fixedpoint.MulDiv(p.FundingConstantC, ratioSqScaled, config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return err
	}

	deltaTBig := new(big.Int).SetInt64(deltaT)
	accrued := new(big.Int).Mul(fundingRate, deltaTBig)
	p.CumulativeFundingAccumulator.Add(p.CumulativeFundingAccumulator, accrued)

	feesLong, err := fixedpoint.MulDiv(new(big.Int).Mul(fundingRate, p.TotalDeltaKLongs), deltaTBig, config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return err
	}
	feesShort, err := fixedpoint.MulDiv(new(big.Int).Mul(fundingRate, p.TotalDeltaKShorts), deltaTBig, config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return err
	}

	if err := distributeFees(p, feesLong, feesShort); err != nil {
		return err
	}

	p.TotalDeltaKLongs.Sub(p.TotalDeltaKLongs, feesLong)
	if p.TotalDeltaKLongs.Sign() < 0 {
		p.TotalDeltaKLongs.SetInt64(0)
	}
	p.TotalDeltaKShorts.Sub(p.TotalDeltaKShorts, feesShort)
	if p.TotalDeltaKShorts.Sign() < 0 {
		p.TotalDeltaKShorts.SetInt64(0)
	}

	snapDustIfBelowThreshold(p)
	p.MaybeSnap()

	p.LastUpdateTimestamp = now
	return nil
}

// distributeFees raises effective reserves toward real reserves: longs pay
// in the token reserve, shorts pay in the SOL reserve.
func distributeFees(p *pool.Pool, feesLong, feesShort *big.Int) error {
	if feesLong.Sign() > 0 && p.EffectiveSolReserve > 0 {
		credit, err := fixedpoint.MulDiv(feesLong, big.NewInt(1), new(big.Int).SetUint64(p.EffectiveSolReserve), fixedpoint.RoundDown)
		if err != nil {
			return err
		}
		creditU64, err := fixedpoint.BigToUint64(credit)
		if err != nil {
			return err
		}
		p.EffectiveTokenReserve += creditU64
	}
	if feesShort.Sign() > 0 && p.EffectiveTokenReserve > 0 {
		credit, err := fixedpoint.MulDiv(feesShort, big.NewInt(1), new(big.Int).SetUint64(p.EffectiveTokenReserve), fixedpoint.RoundDown)
		if err != nil {
			return err
		}
		creditU64, err := fixedpoint.BigToUint64(credit)
		if err != nil {
			return err
		}
		p.EffectiveSolReserve += creditU64
	}
	return nil
}

// snapDustIfBelowThreshold zeroes out a Δk side once it falls below
// effective_k / DeltaKSnapDivisor, matching the protocol's rounding guard.
func snapDustIfBelowThreshold(p *pool.Pool) {
	threshold := new(big.Int).Div(p.EffectiveK(), big.NewInt(config.DeltaKSnapDivisor))
	if p.TotalDeltaKLongs.Cmp(threshold) < 0 {
		p.TotalDeltaKLongs.SetInt64(0)
	}
	if p.TotalDeltaKShorts.Cmp(threshold) < 0 {
		p.TotalDeltaKShorts.SetInt64(0)
	}
}

// RemainingFactor returns f(t) = PRECISION - (acc_now - acc_entry), clamped
// to zero once the position has fully amortized.
func RemainingFactor(p *pool.Pool, entryAcc *big.Int) *big.Int {
	diff := new(big.Int).Sub(p.CumulativeFundingAccumulator, entryAcc)
	if diff.Cmp(config.PRECISION) >= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(config.PRECISION, diff)
}
