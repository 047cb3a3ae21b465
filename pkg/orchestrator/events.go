package orchestrator

import (
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Event is the common envelope every emitted event satisfies: a unique ID
// and the timestamp the orchestrator applied the operation at. Event
// emission is an external-collaborator concern (spec §1); the payloads
// below are produced purely so a host can persist or broadcast them, not
// consumed by the engine itself.
type Event interface {
	EventID() uuid.UUID
	Timestamp() int64
}

type base struct {
	ID uuid.UUID
	At int64
}

func (b base) EventID() uuid.UUID { return b.ID }
func (b base) Timestamp() int64   { return b.At }

func newBase(now int64) base {
	return base{ID: uuid.New(), At: now}
}

// BondingCurveLaunched is emitted by launch_on_curve.
type BondingCurveLaunched struct {
	base
	TokenMint        solana.PublicKey
	Pool             solana.PublicKey
	Authority        solana.PublicKey
	TotalSupply      uint64
	TargetSol        uint64
	TargetTokensSold uint64
}

// BondingCurveSwapped is emitted by swap_on_curve.
type BondingCurveSwapped struct {
	base
	User              solana.PublicKey
	Pool              solana.PublicKey
	InputIsSol        bool
	AmountIn          uint64
	AmountOut         uint64
	TokensSoldOnCurve uint64
	SolRaisedOnCurve  uint64
}

// BondingCurveGraduated is emitted when swap_on_curve's buy crosses a
// graduation target and hands off to the AMM.
type BondingCurveGraduated struct {
	base
	Pool        solana.PublicKey
	TokenMint   solana.PublicKey
	SolRaised   uint64
	TokensForLP uint64
}

// PoolLaunched is emitted by the direct-AMM launch entry point.
type PoolLaunched struct {
	base
	TokenMint         solana.PublicKey
	Pool              solana.PublicKey
	VirtualSolReserve uint64
}

// Swapped is emitted by spot swap.
type Swapped struct {
	base
	User       solana.PublicKey
	Pool       solana.PublicKey
	InputIsSol bool
	AmountIn   uint64
	AmountOut  uint64
}

// PositionOpened is emitted by leverage_swap. EntryPrice is the spot
// price (PRICE_PRECISION-scaled) at the moment the position was opened,
// carried over from the original program's event shape even though it is
// not needed by the close/liquidate math (both recompute from current
// reserves).
type PositionOpened struct {
	base
	User       solana.PublicKey
	Pool       solana.PublicKey
	IsLong     bool
	Collateral uint64
	Leverage   uint64
	Size       uint64
	EntryPrice uint64
}

// PositionClosed is emitted by close_position.
type PositionClosed struct {
	base
	User           solana.PublicKey
	Pool           solana.PublicKey
	IsLong         bool
	PositionSize   uint64
	BorrowedAmount uint64
	UserReceived   uint64
}

// PositionLiquidated is emitted by liquidate.
type PositionLiquidated struct {
	base
	Liquidator       solana.PublicKey
	PositionOwner    solana.PublicKey
	Pool             solana.PublicKey
	PositionSize     uint64
	BorrowedAmount   uint64
	LiquidatorReward uint64
}
