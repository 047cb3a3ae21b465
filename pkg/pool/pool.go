// Package pool implements the two-reserve constant-product market: the
// real (custodied) and effective (pricing) reserve pair, their divergence
// under outstanding leveraged debt, and the spot swap output function.
package pool

import (
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Phase is a pool's lifecycle phase.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseCurve
	PhaseAMM
)

// Pool is the per-token market state: real and effective reserves, the
// outstanding leveraged debt on each side, the funding accumulator, the
// EMA price oracle, and the configuration constants it was launched with.
type Pool struct {
	TokenMint  solana.PublicKey
	TokenVault solana.PublicKey
	Authority  solana.PublicKey

	SolReserve   uint64
	TokenReserve uint64

	EffectiveSolReserve   uint64
	EffectiveTokenReserve uint64

	TotalDeltaKLongs             *big.Int
	TotalDeltaKShorts            *big.Int
	CumulativeFundingAccumulator *big.Int

	LastUpdateTimestamp int64

	EMAPrice       *big.Int
	EMAInitialized bool

	FundingConstantC                  *big.Int
	LiquidationDivergenceThresholdPct uint64
	MaxDeltaKBps                      uint64
	EMASmoothingWindow                uint64

	Phase Phase
}

// New returns an Uninitialized pool configured from cfg, with zeroed
// reserves and debt sums. Callers move it into Curve or AMM phase via
// the orchestrator's launch operations.
func New(tokenMint, tokenVault, authority solana.PublicKey, cfg config.Config) *Pool {
	return &Pool{
		TokenMint:                         tokenMint,
		TokenVault:                        tokenVault,
		Authority:                         authority,
		TotalDeltaKLongs:                  big.NewInt(0),
		TotalDeltaKShorts:                 big.NewInt(0),
		CumulativeFundingAccumulator:      big.NewInt(0),
		EMAPrice:                          big.NewInt(0),
		FundingConstantC:                  new(big.Int).Set(cfg.FundingConstantC),
		LiquidationDivergenceThresholdPct: cfg.LiquidationDivergenceThresholdPct,
		MaxDeltaKBps:                      cfg.MaxDeltaKBps,
		EMASmoothingWindow:                cfg.EMASmoothingWindow,
		Phase:                             PhaseUninitialized,
	}
}

// EffectiveK returns effective_sol_reserve * effective_token_reserve.
func (p *Pool) EffectiveK() *big.Int {
	x := new(big.Int).SetUint64(p.EffectiveSolReserve)
	y := new(big.Int).SetUint64(p.EffectiveTokenReserve)
	return x.Mul(x, y)
}

// TotalDeltaK returns the sum of outstanding long and short Δk.
func (p *Pool) TotalDeltaK() *big.Int {
	return new(big.Int).Add(p.TotalDeltaKLongs, p.TotalDeltaKShorts)
}

// CalculateOutput computes the constant-product swap output for
// inputAmount against the pool's effective reserves, rounding the output
// down and the post-swap reserve up per the rounding policy contract
// (spec §4.1): k_new never falls below k_old.
func (p *Pool) CalculateOutput(inputAmount uint64, inputIsSol bool) (uint64, error) {
	if inputAmount == 0 {
		return 0, types.ErrZeroSwapAmount
	}
	if p.EffectiveSolReserve == 0 || p.EffectiveTokenReserve == 0 {
		return 0, types.ErrInsufficientLiquidity
	}

	x := new(big.Int).SetUint64(p.EffectiveSolReserve)
	y := new(big.Int).SetUint64(p.EffectiveTokenReserve)
	k := new(big.Int).Mul(x, y)

	var reserveIn, reserveOut *big.Int
	if inputIsSol {
		reserveIn, reserveOut = x, y
	} else {
		reserveIn, reserveOut = y, x
	}

	newReserveIn := new(big.Int).Add(reserveIn, new(big.Int).SetUint64(inputAmount))
	newReserveOut, err := fixedpoint.CeilDiv(k, newReserveIn)
	if err != nil {
		return 0, err
	}
	if newReserveOut.Cmp(reserveOut) > 0 {
		return 0, types.ErrInsufficientLiquidity
	}

	output := new(big.Int).Sub(reserveOut, newReserveOut)
	return fixedpoint.BigToUint64(output)
}

// SpotPrice returns effective_sol_reserve * PRICE_PRECISION /
// effective_token_reserve, the instantaneous price used to drive the EMA
// and the liquidation divergence guard.
func (p *Pool) SpotPrice() (*big.Int, error) {
	if p.EffectiveTokenReserve == 0 {
		return nil, types.ErrInsufficientLiquidity
	}
	numerator := new(big.Int).SetUint64(p.EffectiveSolReserve)
	numerator.Mul(numerator, config.PricePrecision)
	return fixedpoint.MulDiv(numerator, big.NewInt(1), new(big.Int).SetUint64(p.EffectiveTokenReserve), fixedpoint.RoundDown)
}

// UpdateEMA recomputes the EMA price oracle from the current spot price.
// The first observation sets the EMA directly; subsequent observations
// blend with weight alpha = 2/(EMASmoothingWindow+1).
func (p *Pool) UpdateEMA() error {
	spot, err := p.SpotPrice()
	if err != nil {
		return err
	}
	if !p.EMAInitialized {
		p.EMAPrice = spot
		p.EMAInitialized = true
		return nil
	}

	alphaNum := config.EMAAlphaNumerator()
	alphaDen := new(big.Int).SetUint64(p.EMASmoothingWindow + 1)

	// ema_new = (alpha_num*spot + (alpha_den-alpha_num)*ema_old) / alpha_den
	weightedSpot := new(big.Int).Mul(alphaNum, spot)
	oneMinusAlphaNum := new(big.Int).Sub(alphaDen, alphaNum)
	weightedOld := new(big.Int).Mul(oneMinusAlphaNum, p.EMAPrice)
	sum := new(big.Int).Add(weightedSpot, weightedOld)

	newEMA, err := fixedpoint.MulDiv(sum, big.NewInt(1), alphaDen, fixedpoint.RoundDown)
	if err != nil {
		return err
	}
	p.EMAPrice = newEMA
	return nil
}

// SnapEffectiveToReal erases rounding dust by resetting the effective
// reserves to the real reserves once both Δk sums have fully amortized to
// zero. Safe to call unconditionally; callers are expected to gate it on
// TotalDeltaK().Sign() == 0.
func (p *Pool) SnapEffectiveToReal() {
	p.EffectiveSolReserve = p.SolReserve
	p.EffectiveTokenReserve = p.TokenReserve
}

// MaybeSnap snaps effective to real reserves if both Δk sums are zero.
func (p *Pool) MaybeSnap() {
	if p.TotalDeltaKLongs.Sign() == 0 && p.TotalDeltaKShorts.Sign() == 0 {
		p.SnapEffectiveToReal()
	}
}
