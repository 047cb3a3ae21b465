package position_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/position"
)

func randomPublicKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key.PublicKey()
}

func newTestPool(t *testing.T, reserve uint64) *pool.Pool {
	t.Helper()
	p := pool.New(randomPublicKey(t), randomPublicKey(t), randomPublicKey(t), config.Default())
	p.Phase = pool.PhaseAMM
	p.SolReserve = reserve
	p.TokenReserve = reserve
	p.EffectiveSolReserve = reserve
	p.EffectiveTokenReserve = reserve
	return p
}

// TestOpenCloseZeroDeltaTRoundTrips mirrors scenario S3: opening and
// immediately closing a leveraged long should return the user's input up
// to at most 1-unit rounding with Δt = 0.
func TestOpenCloseZeroDeltaTRoundTrips(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)

	pos, err := position.Open(p, owner, 100, 1, 25, 0, true, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos.Size == 0 {
		t.Fatal("expected non-zero size")
	}

	payout, err := position.Close(p, pos, 0)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	diff := int64(payout) - int64(100)
	if diff < -1 || diff > 1 {
		t.Fatalf("close payout %d diverges from input 100 by more than 1 unit", payout)
	}
}

func TestOpenRejectsInvalidLeverage(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)
	if _, err := position.Open(p, owner, 100, 1, 9, 0, true, 0); err == nil {
		t.Fatal("expected InvalidLeverage below 10")
	}
	if _, err := position.Open(p, owner, 100, 1, 101, 0, true, 0); err == nil {
		t.Fatal("expected InvalidLeverage above 100")
	}
}

func TestOpenAtMinimumLeverageBehavesLikeSpotSwap(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)

	pos, err := position.Open(p, owner, 100, 1, 10, 0, true, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	borrowed, err := pos.BorrowedAmount()
	if err != nil {
		t.Fatalf("BorrowedAmount: %v", err)
	}
	if borrowed != 0 {
		t.Fatalf("expected zero borrowed amount at leverage=10, got %d", borrowed)
	}
}

func TestOpenRejectsZeroAmount(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)
	if _, err := position.Open(p, owner, 0, 0, 20, 0, true, 0); err == nil {
		t.Fatal("expected ZeroSwapAmount")
	}
}

func TestOpenEnforcesSlippage(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)
	if _, err := position.Open(p, owner, 100, 1_000_000, 20, 0, true, 0); err == nil {
		t.Fatal("expected SlippageToleranceExceeded with an unreachable minAmountOut")
	}
}

func TestLiquidateFailsOnPriceDivergence(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)

	pos, err := position.Open(p, owner, 100, 1, 50, 0, true, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Force a large EMA/spot divergence.
	p.EMAPrice.SetUint64(p.EMAPrice.Uint64() * 10)

	if _, err := position.Liquidate(p, pos, 0); err == nil {
		t.Fatal("expected LiquidationPriceManipulation")
	}
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	p := newTestPool(t, 10_000)
	owner := randomPublicKey(t)

	pos, err := position.Open(p, owner, 100, 1, 15, 0, true, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := position.Liquidate(p, pos, 0); err == nil {
		t.Fatal("expected PositionNotLiquidatable for a freshly opened, healthy position")
	}
}
