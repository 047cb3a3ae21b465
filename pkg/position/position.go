// Package position implements the leveraged position lifecycle: opening
// a leveraged swap against the pool's effective reserves, closing it back
// out, and the third-party liquidation path, including the stored Δk,
// the entry funding-accumulator snapshot, and the liquidation predicate.
package position

import (
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/funding"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Position is an immutable snapshot of a leveraged open: once created it
// is never mutated, only destroyed by Close or Liquidate.
type Position struct {
	Owner solana.PublicKey
	Pool  solana.PublicKey

	IsLong     bool
	Collateral uint64
	Leverage   uint64
	Size       uint64

	DeltaK                  *big.Int
	EntryFundingAccumulator *big.Int

	Nonce uint64
}

// BorrowedAmount returns the portion of the leveraged total input the
// position's collateral did not cover: collateral*leverage/10 - collateral,
// in units of the input asset; the virtual debt a
// zero-leverage (leverage=10) open always reports as zero.
func (p *Position) BorrowedAmount() (uint64, error) {
	totalInput, err := totalInput(p.Collateral, p.Leverage)
	if err != nil {
		return 0, err
	}
	return fixedpoint.SubU64(totalInput, p.Collateral)
}

func totalInput(amountIn, leverage uint64) (uint64, error) {
	scaled, err := fixedpoint.MulU64(amountIn, leverage)
	if err != nil {
		return 0, err
	}
	return scaled / 10, nil
}

// Open executes a leveraged swap (spec §4.5.1): it advances funding,
// computes the leveraged output against the pool's effective reserves,
// books the position's Δk against the appropriate side, and returns the
// persisted, immutable Position. inputIsSol selects the side the trader
// deposits on: true opens a long (SOL in, claim on tokens), false opens a
// short (tokens in, claim on SOL).
func Open(p *pool.Pool, owner solana.PublicKey, amountIn, minAmountOut, leverage, nonce uint64, inputIsSol bool, now int64) (*Position, error) {
	if amountIn == 0 {
		return nil, types.ErrZeroSwapAmount
	}
	if err := types.ValidateLeverage(leverage); err != nil {
		return nil, err
	}
	if p.Phase != pool.PhaseAMM {
		return nil, types.ErrInvalidPoolState
	}

	if err := funding.Advance(p, now); err != nil {
		return nil, err
	}

	totalInputAmount, err := totalInput(amountIn, leverage)
	if err != nil {
		return nil, err
	}

	preX := new(big.Int).SetUint64(p.EffectiveSolReserve)
	preY := new(big.Int).SetUint64(p.EffectiveTokenReserve)
	preK := new(big.Int).Mul(preX, preY)

	output, err := p.CalculateOutput(totalInputAmount, inputIsSol)
	if err != nil {
		return nil, err
	}
	if output < minAmountOut {
		return nil, types.ErrSlippageToleranceExceeded
	}

	// The entering side advances by the real collateral (amountIn), not the
	// leveraged totalInputAmount: CalculateOutput already rounds the exiting
	// side up against totalInputAmount as the new reserve-in, so crediting
	// the entering side with that same leveraged amount would make post_k
	// track pre_k almost exactly, collapsing delta_k to ~0. Only amountIn
	// actually changed hands; the rest is virtual debt tracked via delta_k.
	var postSol, postToken uint64
	if inputIsSol {
		postSol = p.EffectiveSolReserve + amountIn
		postToken = p.EffectiveTokenReserve - output
	} else {
		postToken = p.EffectiveTokenReserve + amountIn
		postSol = p.EffectiveSolReserve - output
	}
	postX := new(big.Int).SetUint64(postSol)
	postY := new(big.Int).SetUint64(postToken)
	postK := new(big.Int).Mul(postX, postY)

	deltaK := new(big.Int).Sub(preK, postK)
	if deltaK.Sign() < 0 {
		deltaK.SetInt64(0)
	}

	if p.MaxDeltaKBps > 0 {
		cap := new(big.Int).Mul(preK, new(big.Int).SetUint64(p.MaxDeltaKBps))
		cap.Div(cap, big.NewInt(10_000))
		if deltaK.Cmp(cap) > 0 {
			return nil, types.ErrExcessiveLeverage
		}
	}

	isLong := inputIsSol
	newTotal := new(big.Int).Add(p.TotalDeltaK(), deltaK)
	if newTotal.Cmp(postK) >= 0 {
		return nil, types.ErrExcessiveLeverage
	}

	if inputIsSol {
		p.SolReserve += amountIn
	} else {
		p.TokenReserve += amountIn
	}
	p.EffectiveSolReserve = postSol
	p.EffectiveTokenReserve = postToken

	if isLong {
		p.TotalDeltaKLongs.Add(p.TotalDeltaKLongs, deltaK)
	} else {
		p.TotalDeltaKShorts.Add(p.TotalDeltaKShorts, deltaK)
	}

	if err := p.UpdateEMA(); err != nil {
		return nil, err
	}

	return &Position{
		Owner:                   owner,
		Pool:                    p.TokenMint,
		IsLong:                  isLong,
		Collateral:              amountIn,
		Leverage:                leverage,
		Size:                    output,
		DeltaK:                  deltaK,
		EntryFundingAccumulator: new(big.Int).Set(p.CumulativeFundingAccumulator),
		Nonce:                   nonce,
	}, nil
}

func totalDeltaKForSide(p *pool.Pool, isLong bool) *big.Int {
	if isLong {
		return p.TotalDeltaKLongs
	}
	return p.TotalDeltaKShorts
}

// remainingEffective returns the position's effective size and Δk at the
// current funding accumulator: size*f/PRECISION and delta_k*f/PRECISION.
func remainingEffective(p *pool.Pool, pos *Position) (effSize, effDeltaK *big.Int, err error) {
	f := funding.RemainingFactor(p, pos.EntryFundingAccumulator)
	effSizeBig, err := fixedpoint.MulDiv(new(big.Int).SetUint64(pos.Size), f, config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return nil, nil, err
	}
	effDeltaKBig, err := fixedpoint.MulDiv(pos.DeltaK, f, config.PRECISION, fixedpoint.RoundDown)
	if err != nil {
		return nil, nil, err
	}
	return effSizeBig, effDeltaKBig, nil
}

// closePayout computes the close-payout numerator/denominator for pos
// against p's current effective reserves, per spec §4.5.2. The caller
// checks numerator.Sign() <= 0 for PositionNotClosable/underwater.
func closePayout(p *pool.Pool, pos *Position, effSize, effDeltaK *big.Int) (numerator, denominator *big.Int) {
	x := new(big.Int).SetUint64(p.EffectiveSolReserve)
	y := new(big.Int).SetUint64(p.EffectiveTokenReserve)
	if pos.IsLong {
		numerator = new(big.Int).Sub(new(big.Int).Mul(x, effSize), effDeltaK)
		denominator = new(big.Int).Add(y, effSize)
	} else {
		numerator = new(big.Int).Sub(new(big.Int).Mul(y, effSize), effDeltaK)
		denominator = new(big.Int).Add(x, effSize)
	}
	return numerator, denominator
}

// applyClose performs the shared reserve/debt bookkeeping for both a
// voluntary close and a liquidation: crediting eff_size back to the
// position's claimed side, debiting payout from the paid side (both
// effective and real), and amortizing the position's share of Δk.
func applyClose(p *pool.Pool, pos *Position, effDeltaK *big.Int, effSize, payout uint64) error {
	if pos.IsLong {
		p.EffectiveTokenReserve += effSize
		p.EffectiveSolReserve -= payout
		p.SolReserve -= payout
		p.TotalDeltaKLongs.Sub(p.TotalDeltaKLongs, effDeltaK)
		if p.TotalDeltaKLongs.Sign() < 0 {
			p.TotalDeltaKLongs.SetInt64(0)
		}
	} else {
		p.EffectiveSolReserve += effSize
		p.EffectiveTokenReserve -= payout
		p.TokenReserve -= payout
		p.TotalDeltaKShorts.Sub(p.TotalDeltaKShorts, effDeltaK)
		if p.TotalDeltaKShorts.Sign() < 0 {
			p.TotalDeltaKShorts.SetInt64(0)
		}
	}

	threshold := new(big.Int).Div(p.EffectiveK(), big.NewInt(config.DeltaKSnapDivisor))
	if p.TotalDeltaKLongs.Cmp(threshold) < 0 {
		p.TotalDeltaKLongs.SetInt64(0)
	}
	if p.TotalDeltaKShorts.Cmp(threshold) < 0 {
		p.TotalDeltaKShorts.SetInt64(0)
	}
	p.MaybeSnap()
	return nil
}

// Close executes a voluntary close (spec §4.5.2): advances funding,
// computes the position's remaining factor, settles the payout against
// current effective reserves, and returns the payout due to the owner.
func Close(p *pool.Pool, pos *Position, now int64) (uint64, error) {
	if err := funding.Advance(p, now); err != nil {
		return 0, err
	}

	effSize, effDeltaK, err := remainingEffective(p, pos)
	if err != nil {
		return 0, err
	}

	numerator, denominator := closePayout(p, pos, effSize, effDeltaK)
	if numerator.Sign() <= 0 {
		return 0, types.ErrPositionNotClosable
	}

	payoutBig, err := fixedpoint.MulDiv(numerator, big.NewInt(1), denominator, fixedpoint.RoundDown)
	if err != nil {
		return 0, err
	}
	payout, err := fixedpoint.BigToUint64(payoutBig)
	if err != nil {
		return 0, err
	}
	effSizeU64, err := fixedpoint.BigToUint64(effSize)
	if err != nil {
		return 0, err
	}

	if err := applyClose(p, pos, effDeltaK, effSizeU64, payout); err != nil {
		return 0, err
	}
	return payout, nil
}

// Liquidate executes a third-party liquidation (spec §4.5.3): advances
// funding, enforces the EMA price-safety guard, verifies the liquidation
// predicate (payout bounded to a small fraction of gross notional value),
// and otherwise settles exactly as Close, paying the entire payout to the
// liquidator.
func Liquidate(p *pool.Pool, pos *Position, now int64) (uint64, error) {
	if err := funding.Advance(p, now); err != nil {
		return 0, err
	}

	spot, err := p.SpotPrice()
	if err != nil {
		return 0, err
	}
	if p.EMAInitialized {
		diff := new(big.Int).Sub(spot, p.EMAPrice)
		diff.Abs(diff)
		bound := new(big.Int).Mul(p.EMAPrice, new(big.Int).SetUint64(p.LiquidationDivergenceThresholdPct))
		bound.Div(bound, big.NewInt(100))
		if diff.Cmp(bound) > 0 {
			return 0, types.ErrLiquidationPriceManipulation
		}
	}

	effSize, effDeltaK, err := remainingEffective(p, pos)
	if err != nil {
		return 0, err
	}

	numerator, denominator := closePayout(p, pos, effSize, effDeltaK)
	if numerator.Sign() <= 0 {
		return 0, types.ErrPositionNotLiquidatable
	}

	payoutBig, err := fixedpoint.MulDiv(numerator, big.NewInt(1), denominator, fixedpoint.RoundDown)
	if err != nil {
		return 0, err
	}

	effSizeU64, err := fixedpoint.BigToUint64(effSize)
	if err != nil {
		return 0, err
	}
	grossValue, err := p.CalculateOutput(effSizeU64, !pos.IsLong)
	if err != nil {
		return 0, err
	}

	grossBig := new(big.Int).SetUint64(grossValue)
	cap := new(big.Int).Mul(grossBig, big.NewInt(config.LiquidatorPayoutCapBps))
	cap.Div(cap, big.NewInt(10_000))
	if payoutBig.Cmp(cap) > 0 {
		return 0, types.ErrPositionNotLiquidatable
	}

	payout, err := fixedpoint.BigToUint64(payoutBig)
	if err != nil {
		return 0, err
	}

	if err := applyClose(p, pos, effDeltaK, effSizeU64, payout); err != nil {
		return 0, err
	}
	return payout, nil
}
