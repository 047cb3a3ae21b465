// Package orchestrator wires the bonding curve, pool, funding engine, and
// position lifecycle into the seven external operations of a single
// token's market: launch_on_curve, swap_on_curve, launch, swap,
// leverage_swap, close_position, and liquidate. It owns phase transitions
// (Uninitialized -> Curve -> AMM), calls the custody external
// collaborators for physical asset movement, and returns the events each
// operation produces (one, or two for a curve buy that graduates).
package orchestrator

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/curve"
	"github.com/facemelt-labs/perpcore/pkg/custody"
	"github.com/facemelt-labs/perpcore/pkg/fixedpoint"
	"github.com/facemelt-labs/perpcore/pkg/funding"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/position"
	"github.com/facemelt-labs/perpcore/pkg/types"
)

// Market is a single token's pool plus its (possibly nil, pre-launch)
// bonding curve and its open positions, keyed by (pool, owner, nonce).
type Market struct {
	Pool      *pool.Pool
	Curve     *curve.Curve
	Positions map[types.PositionKey]*position.Position

	Vault     custody.Vault
	Authority custody.AuthorityController
	Config    config.Config
}

// New constructs an Uninitialized Market for tokenMint, ready for either
// LaunchOnCurve or Launch.
func New(tokenMint, tokenVault, authority solana.PublicKey, cfg config.Config, vault custody.Vault, authCtl custody.AuthorityController) *Market {
	return &Market{
		Pool:      pool.New(tokenMint, tokenVault, authority, cfg),
		Positions: make(map[types.PositionKey]*position.Position),
		Vault:     vault,
		Authority: authCtl,
		Config:    cfg,
	}
}

func (m *Market) positionKey(owner solana.PublicKey, nonce uint64) types.PositionKey {
	return types.PositionKey{Pool: m.Pool.TokenMint, Owner: owner, Nonce: nonce}
}

// LaunchOnCurve creates the bonding curve and disables further mint/freeze
// authority. totalSupply/targetSol/targetTokensSold of zero fall back to
// the protocol defaults (spec §6).
func (m *Market) LaunchOnCurve(ctx context.Context, authority solana.PublicKey, totalSupply, targetSol, targetTokensSold uint64, now int64) (*BondingCurveLaunched, error) {
	log := m.Config.Logger.With().Str("op", "launch_on_curve").Logger()
	log.Debug().Msg("starting")

	if m.Pool.Phase != pool.PhaseUninitialized {
		return nil, types.ErrPoolAlreadyInitialized
	}
	if err := types.ValidatePublicKey("authority", authority); err != nil {
		return nil, err
	}

	if totalSupply == 0 {
		totalSupply = config.DefaultTotalSupply
	}
	if targetSol == 0 {
		targetSol = config.DefaultTargetSol
	}
	if targetTokensSold == 0 {
		targetTokensSold = config.DefaultTargetTokensSold
	}

	c, err := curve.New(totalSupply, targetSol, targetTokensSold)
	if err != nil {
		return nil, err
	}

	if err := m.Vault.Deposit(ctx, m.Pool.TokenMint, m.Pool.TokenVault, totalSupply); err != nil {
		return nil, fmt.Errorf("mint total supply into vault: %w", err)
	}
	if err := m.Authority.DisableMintAuthority(ctx, m.Pool.TokenMint); err != nil {
		return nil, fmt.Errorf("disable mint authority: %w", err)
	}
	if err := m.Authority.DisableFreezeAuthority(ctx, m.Pool.TokenMint); err != nil {
		return nil, fmt.Errorf("disable freeze authority: %w", err)
	}

	m.Curve = c
	m.Pool.Authority = authority
	m.Pool.Phase = pool.PhaseCurve
	m.Pool.LastUpdateTimestamp = now

	log.Info().Uint64("total_supply", totalSupply).Uint64("target_sol", targetSol).Msg("bonding curve launched")

	return &BondingCurveLaunched{
		base:             newBase(now),
		TokenMint:        m.Pool.TokenMint,
		Pool:             m.Pool.TokenVault,
		Authority:        authority,
		TotalSupply:      totalSupply,
		TargetSol:        targetSol,
		TargetTokensSold: targetTokensSold,
	}, nil
}

// SwapOnCurveResult bundles the BondingCurveSwapped event with an
// optional graduation event, since a buy that crosses the target
// produces both.
type SwapOnCurveResult struct {
	Swapped   *BondingCurveSwapped
	Graduated *BondingCurveGraduated
}

// SwapOnCurve executes a buy or sell against the active bonding curve,
// graduating to the AMM if a buy crosses either target.
func (m *Market) SwapOnCurve(ctx context.Context, user solana.PublicKey, amountIn uint64, inputIsSol bool, now int64) (*SwapOnCurveResult, error) {
	log := m.Config.Logger.With().Str("op", "swap_on_curve").Logger()
	log.Debug().Msg("starting")

	if m.Pool.Phase != pool.PhaseCurve || m.Curve == nil {
		return nil, types.ErrBondingCurveNotActive
	}

	var amountOut uint64
	var graduated bool
	if inputIsSol {
		result, err := m.Curve.Buy(amountIn)
		if err != nil {
			return nil, err
		}
		amountOut = result.TokensOut
		graduated = result.Graduated

		if err := m.Vault.Deposit(ctx, types.NativeSOLMint, m.Pool.TokenVault, result.SolSpent); err != nil {
			return nil, fmt.Errorf("deposit sol into curve: %w", err)
		}
		if err := m.Vault.Withdraw(ctx, m.Pool.TokenMint, user, amountOut); err != nil {
			return nil, fmt.Errorf("transfer curve tokens to buyer: %w", err)
		}
		if result.Refund > 0 {
			if err := m.Vault.Withdraw(ctx, types.NativeSOLMint, user, result.Refund); err != nil {
				return nil, fmt.Errorf("refund residual sol: %w", err)
			}
		}
	} else {
		out, err := m.Curve.Sell(amountIn)
		if err != nil {
			return nil, err
		}
		amountOut = out
		if err := m.Vault.Deposit(ctx, m.Pool.TokenMint, m.Pool.TokenVault, amountIn); err != nil {
			return nil, fmt.Errorf("deposit tokens into curve: %w", err)
		}
		if err := m.Vault.Withdraw(ctx, types.NativeSOLMint, user, amountOut); err != nil {
			return nil, fmt.Errorf("pay curve sol proceeds: %w", err)
		}
	}

	result := &SwapOnCurveResult{
		Swapped: &BondingCurveSwapped{
			base:              newBase(now),
			User:              user,
			Pool:              m.Pool.TokenVault,
			InputIsSol:        inputIsSol,
			AmountIn:          amountIn,
			AmountOut:         amountOut,
			TokensSoldOnCurve: m.Curve.TokensSold,
			SolRaisedOnCurve:  m.Curve.SolRaised,
		},
	}

	if graduated {
		graduationEvent, err := m.graduateToAMM(now)
		if err != nil {
			return nil, err
		}
		result.Graduated = graduationEvent
	}

	log.Info().Uint64("amount_in", amountIn).Uint64("amount_out", amountOut).Bool("graduated", graduated).Msg("curve swap settled")
	return result, nil
}

// graduateToAMM seeds the AMM from the curve's raise and marks the pool
// AMM-phase (spec §4.6).
func (m *Market) graduateToAMM(now int64) (*BondingCurveGraduated, error) {
	lpTokens := m.Curve.TargetTokensSold / 2
	solSeed := m.Curve.SolRaised

	m.Pool.SolReserve = solSeed
	m.Pool.TokenReserve = lpTokens
	m.Pool.EffectiveSolReserve = solSeed
	m.Pool.EffectiveTokenReserve = lpTokens
	m.Pool.Phase = pool.PhaseAMM
	m.Pool.LastUpdateTimestamp = now

	if err := m.Pool.UpdateEMA(); err != nil {
		return nil, err
	}

	return &BondingCurveGraduated{
		base:        newBase(now),
		Pool:        m.Pool.TokenVault,
		TokenMint:   m.Pool.TokenMint,
		SolRaised:   solSeed,
		TokensForLP: lpTokens,
	}, nil
}

// Launch seeds the AMM directly, skipping the bonding curve, from
// authority-supplied virtual SOL and minted tokens.
func (m *Market) Launch(ctx context.Context, authority solana.PublicKey, solAmount, tokenAmount uint64, now int64) (*PoolLaunched, error) {
	log := m.Config.Logger.With().Str("op", "launch").Logger()
	log.Debug().Msg("starting")

	if m.Pool.Phase != pool.PhaseUninitialized {
		return nil, types.ErrPoolAlreadyInitialized
	}
	if solAmount == 0 || tokenAmount == 0 {
		return nil, types.NewValidationError("sol_amount/token_amount", "must both be greater than 0")
	}

	if err := m.Vault.Deposit(ctx, m.Pool.TokenMint, m.Pool.TokenVault, tokenAmount); err != nil {
		return nil, fmt.Errorf("mint initial supply: %w", err)
	}
	if err := m.Vault.Deposit(ctx, types.NativeSOLMint, m.Pool.TokenVault, solAmount); err != nil {
		return nil, fmt.Errorf("seed virtual sol reserve: %w", err)
	}
	if err := m.Authority.DisableMintAuthority(ctx, m.Pool.TokenMint); err != nil {
		return nil, fmt.Errorf("disable mint authority: %w", err)
	}
	if err := m.Authority.DisableFreezeAuthority(ctx, m.Pool.TokenMint); err != nil {
		return nil, fmt.Errorf("disable freeze authority: %w", err)
	}

	m.Pool.Authority = authority
	m.Pool.SolReserve = solAmount
	m.Pool.TokenReserve = tokenAmount
	m.Pool.EffectiveSolReserve = solAmount
	m.Pool.EffectiveTokenReserve = tokenAmount
	m.Pool.Phase = pool.PhaseAMM
	m.Pool.LastUpdateTimestamp = now

	if err := m.Pool.UpdateEMA(); err != nil {
		return nil, err
	}

	log.Info().Uint64("sol_amount", solAmount).Uint64("token_amount", tokenAmount).Msg("AMM launched directly")

	return &PoolLaunched{
		base:              newBase(now),
		TokenMint:         m.Pool.TokenMint,
		Pool:              m.Pool.TokenVault,
		VirtualSolReserve: solAmount,
	}, nil
}

// Swap executes a spot swap against the AMM.
func (m *Market) Swap(ctx context.Context, user solana.PublicKey, amountIn, minAmountOut uint64, inputIsSol bool, now int64) (*Swapped, error) {
	log := m.Config.Logger.With().Str("op", "swap").Logger()
	log.Debug().Msg("starting")

	if m.Pool.Phase != pool.PhaseAMM {
		return nil, types.ErrInvalidPoolState
	}
	if err := funding.Advance(m.Pool, now); err != nil {
		return nil, err
	}

	output, err := m.Pool.CalculateOutput(amountIn, inputIsSol)
	if err != nil {
		return nil, err
	}
	if output < minAmountOut {
		return nil, types.ErrSlippageToleranceExceeded
	}

	if inputIsSol {
		m.Pool.SolReserve += amountIn
		m.Pool.TokenReserve -= output
		m.Pool.EffectiveSolReserve += amountIn
		m.Pool.EffectiveTokenReserve -= output

		if err := m.Vault.Deposit(ctx, types.NativeSOLMint, m.Pool.TokenVault, amountIn); err != nil {
			return nil, fmt.Errorf("deposit sol: %w", err)
		}
		if err := m.Vault.Withdraw(ctx, m.Pool.TokenMint, user, output); err != nil {
			return nil, fmt.Errorf("pay out tokens: %w", err)
		}
	} else {
		m.Pool.TokenReserve += amountIn
		m.Pool.SolReserve -= output
		m.Pool.EffectiveTokenReserve += amountIn
		m.Pool.EffectiveSolReserve -= output

		if err := m.Vault.Deposit(ctx, m.Pool.TokenMint, m.Pool.TokenVault, amountIn); err != nil {
			return nil, fmt.Errorf("deposit tokens: %w", err)
		}
		if err := m.Vault.Withdraw(ctx, types.NativeSOLMint, user, output); err != nil {
			return nil, fmt.Errorf("pay out sol: %w", err)
		}
	}

	if err := m.Pool.UpdateEMA(); err != nil {
		return nil, err
	}

	log.Info().Uint64("amount_in", amountIn).Uint64("amount_out", output).Msg("spot swap settled")

	return &Swapped{
		base:       newBase(now),
		User:       user,
		Pool:       m.Pool.TokenVault,
		InputIsSol: inputIsSol,
		AmountIn:   amountIn,
		AmountOut:  output,
	}, nil
}

// LeverageSwap opens a leveraged position and stores it keyed by
// (pool, user, nonce). The collateral leg is always deposited under
// whichever mint the trader pays in (native SOL for a long, the curve
// token for a short); the position's virtual borrow never touches
// custody, since it is backed purely by the pool's existing reserves.
func (m *Market) LeverageSwap(ctx context.Context, user solana.PublicKey, amountIn, minAmountOut, leverage, nonce uint64, inputIsSol bool, now int64) (*PositionOpened, error) {
	log := m.Config.Logger.With().Str("op", "leverage_swap").Logger()
	log.Debug().Msg("starting")

	key := m.positionKey(user, nonce)
	if _, exists := m.Positions[key]; exists {
		return nil, types.NewValidationError("nonce", "a position already exists for this owner/nonce")
	}

	pos, err := position.Open(m.Pool, user, amountIn, minAmountOut, leverage, nonce, inputIsSol, now)
	if err != nil {
		return nil, err
	}

	collateralMint := m.Pool.TokenMint
	if inputIsSol {
		collateralMint = types.NativeSOLMint
	}
	if err := m.Vault.Deposit(ctx, collateralMint, m.Pool.TokenVault, amountIn); err != nil {
		return nil, fmt.Errorf("deposit collateral: %w", err)
	}

	m.Positions[key] = pos

	spot, err := m.Pool.SpotPrice()
	if err != nil {
		return nil, err
	}
	entryPrice, err := fixedpoint.BigToUint64(spot)
	if err != nil {
		return nil, err
	}

	log.Info().Bool("is_long", pos.IsLong).Uint64("size", pos.Size).Uint64("leverage", leverage).Msg("position opened")

	return &PositionOpened{
		base:       newBase(now),
		User:       user,
		Pool:       m.Pool.TokenVault,
		IsLong:     pos.IsLong,
		Collateral: pos.Collateral,
		Leverage:   pos.Leverage,
		Size:       pos.Size,
		EntryPrice: entryPrice,
	}, nil
}

// ClosePosition closes the caller's own position and pays the owner in
// whatever mint the position's claim settles in: SOL for a long, the
// curve token for a short.
func (m *Market) ClosePosition(ctx context.Context, owner solana.PublicKey, nonce uint64, now int64) (*PositionClosed, error) {
	log := m.Config.Logger.With().Str("op", "close_position").Logger()
	log.Debug().Msg("starting")

	key := m.positionKey(owner, nonce)
	pos, ok := m.Positions[key]
	if !ok {
		return nil, types.ErrInvalidPosition
	}

	payout, err := position.Close(m.Pool, pos, now)
	if err != nil {
		return nil, err
	}

	payoutMint := payoutMintFor(pos.IsLong, m.Pool.TokenMint)
	if err := m.Vault.Withdraw(ctx, payoutMint, owner, payout); err != nil {
		return nil, fmt.Errorf("pay out close proceeds: %w", err)
	}
	delete(m.Positions, key)

	borrowed, err := pos.BorrowedAmount()
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("payout", payout).Msg("position closed")

	return &PositionClosed{
		base:           newBase(now),
		User:           owner,
		Pool:           m.Pool.TokenVault,
		IsLong:         pos.IsLong,
		PositionSize:   pos.Size,
		BorrowedAmount: borrowed,
		UserReceived:   payout,
	}, nil
}

// Liquidate liquidates positionOwner's position on behalf of liquidator,
// who receives the entire settlement payout as reward.
func (m *Market) Liquidate(ctx context.Context, liquidator, positionOwner solana.PublicKey, nonce uint64, now int64) (*PositionLiquidated, error) {
	log := m.Config.Logger.With().Str("op", "liquidate").Logger()
	log.Debug().Msg("starting")

	key := m.positionKey(positionOwner, nonce)
	pos, ok := m.Positions[key]
	if !ok {
		return nil, types.ErrInvalidPosition
	}

	payout, err := position.Liquidate(m.Pool, pos, now)
	if err != nil {
		return nil, err
	}

	payoutMint := payoutMintFor(pos.IsLong, m.Pool.TokenMint)
	if err := m.Vault.Withdraw(ctx, payoutMint, liquidator, payout); err != nil {
		return nil, fmt.Errorf("pay liquidator reward: %w", err)
	}
	delete(m.Positions, key)

	borrowed, err := pos.BorrowedAmount()
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("reward", payout).Msg("position liquidated")

	return &PositionLiquidated{
		base:             newBase(now),
		Liquidator:       liquidator,
		PositionOwner:    positionOwner,
		Pool:             m.Pool.TokenVault,
		PositionSize:     pos.Size,
		BorrowedAmount:   borrowed,
		LiquidatorReward: payout,
	}, nil
}

// payoutMintFor returns the mint a position's settlement payout is
// denominated in: a long's claim exits as SOL (it entered by depositing
// SOL for a token claim, and closes back out the SOL side), a short's
// exits as the curve token.
func payoutMintFor(isLong bool, tokenMint solana.PublicKey) solana.PublicKey {
	if isLong {
		return types.NativeSOLMint
	}
	return tokenMint
}
