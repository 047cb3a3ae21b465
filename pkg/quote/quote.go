// Package quote provides non-mutating price previews for the bonding
// curve and the constant-product pool: estimate a trade's output,
// minimum-out after slippage, and price impact before committing to it
// through the orchestrator. All quotes are non-binding estimates that
// may differ from the orchestrator's actual output if other trades land
// first.
package quote

import (
	"math/big"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/curve"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Result is the outcome of a price preview.
type Result struct {
	// ExpectedOut is the estimated output amount (tokens for a buy, SOL
	// for a sell).
	ExpectedOut uint64

	// MinOut is ExpectedOut with slippageBps applied.
	MinOut uint64

	// PriceImpactBps is (executionPrice-spotPrice)/spotPrice in basis
	// points, in the direction that makes the trade worse than spot.
	PriceImpactBps uint64

	// SpotPrice is the pool's or curve's price before the trade,
	// lamports per token scaled by config.PricePrecision.
	SpotPrice uint64

	// ExecutionPrice is the effective price this trade would clear at.
	ExecutionPrice uint64
}

// PoolBuyQuote previews a spot swap buy (SOL in) against p without
// mutating it.
func PoolBuyQuote(p *pool.Pool, solIn uint64, slippageBps uint64) (Result, error) {
	return poolQuote(p, solIn, true, slippageBps)
}

// PoolSellQuote previews a spot swap sell (tokens in) against p without
// mutating it.
func PoolSellQuote(p *pool.Pool, tokensIn uint64, slippageBps uint64) (Result, error) {
	return poolQuote(p, tokensIn, false, slippageBps)
}

func poolQuote(p *pool.Pool, amountIn uint64, inputIsSol bool, slippageBps uint64) (Result, error) {
	spot, err := p.SpotPrice()
	if err != nil {
		return Result{}, err
	}
	spotU64, err := fixedpoint.BigToUint64(spot)
	if err != nil {
		return Result{}, err
	}

	out, err := p.CalculateOutput(amountIn, inputIsSol)
	if err != nil {
		return Result{}, err
	}

	var execPrice uint64
	if inputIsSol {
		execPrice, err = priceOf(amountIn, out)
	} else {
		execPrice, err = priceOf(out, amountIn)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		ExpectedOut:    out,
		MinOut:         applySlippage(out, slippageBps),
		PriceImpactBps: impactBps(spotU64, execPrice, inputIsSol),
		SpotPrice:      spotU64,
		ExecutionPrice: execPrice,
	}, nil
}

// CurveBuyQuote previews a swap_on_curve buy against a
// copy of c: c itself is left untouched since curve.Buy mutates its
// receiver in place.
func CurveBuyQuote(c *curve.Curve, solIn uint64, slippageBps uint64) (Result, error) {
	preSpot, err := curveSpotPrice(c)
	if err != nil {
		return Result{}, err
	}

	sim := *c
	result, err := sim.Buy(solIn)
	if err != nil {
		return Result{}, err
	}
	if result.SolSpent == 0 {
		return Result{}, types.ErrZeroSwapAmount
	}

	execPrice, err := priceOf(result.SolSpent, result.TokensOut)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ExpectedOut:    result.TokensOut,
		MinOut:         applySlippage(result.TokensOut, slippageBps),
		PriceImpactBps: impactBps(preSpot, execPrice, true),
		SpotPrice:      preSpot,
		ExecutionPrice: execPrice,
	}, nil
}

// CurveSellQuote previews a curve sell against a copy of c.
func CurveSellQuote(c *curve.Curve, tokensIn uint64, slippageBps uint64) (Result, error) {
	preSpot, err := curveSpotPrice(c)
	if err != nil {
		return Result{}, err
	}

	sim := *c
	solOut, err := sim.Sell(tokensIn)
	if err != nil {
		return Result{}, err
	}

	execPrice, err := priceOf(solOut, tokensIn)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ExpectedOut:    solOut,
		MinOut:         applySlippage(solOut, slippageBps),
		PriceImpactBps: impactBps(preSpot, execPrice, false),
		SpotPrice:      preSpot,
		ExecutionPrice: execPrice,
	}, nil
}

// curveSpotPrice returns the curve's instantaneous price, SlopeM*tokensSold/SCALE,
// scaled to the same PricePrecision as pool.Pool.SpotPrice.
func curveSpotPrice(c *curve.Curve) (uint64, error) {
	sold := new(big.Int).SetUint64(c.TokensSold)
	priced := new(big.Int).Mul(c.SlopeM, sold)
	priced.Mul(priced, config.PricePrecision)
	scaled, err := fixedpoint.MulDiv(priced, big.NewInt(1), config.SCALE, fixedpoint.RoundDown)
	if err != nil {
		return 0, err
	}
	return fixedpoint.BigToUint64(scaled)
}

func priceOf(solAmount, tokenAmount uint64) (uint64, error) {
	if tokenAmount == 0 {
		return 0, types.ErrInsufficientLiquidity
	}
	numerator := new(big.Int).SetUint64(solAmount)
	numerator.Mul(numerator, config.PricePrecision)
	priced, err := fixedpoint.MulDiv(numerator, big.NewInt(1), new(big.Int).SetUint64(tokenAmount), fixedpoint.RoundDown)
	if err != nil {
		return 0, err
	}
	return fixedpoint.BigToUint64(priced)
}

func impactBps(spotPrice, execPrice uint64, isBuy bool) uint64 {
	if spotPrice == 0 {
		return 0
	}
	if isBuy {
		if execPrice <= spotPrice {
			return 0
		}
		return (execPrice - spotPrice) * 10000 / spotPrice
	}
	if spotPrice <= execPrice {
		return 0
	}
	return (spotPrice - execPrice) * 10000 / spotPrice
}

func applySlippage(amount uint64, slippageBps uint64) uint64 {
	if slippageBps >= 10000 {
		return 0
	}
	return amount * (10000 - slippageBps) / 10000
}
