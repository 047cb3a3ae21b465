package pool_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/pool"
)

func randomPublicKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key.PublicKey()
}

func newTestPool(t *testing.T, solReserve, tokenReserve uint64) *pool.Pool {
	t.Helper()
	p := pool.New(randomPublicKey(t), randomPublicKey(t), randomPublicKey(t), config.Default())
	p.Phase = pool.PhaseAMM
	p.SolReserve = solReserve
	p.TokenReserve = tokenReserve
	p.EffectiveSolReserve = solReserve
	p.EffectiveTokenReserve = tokenReserve
	return p
}

func TestCalculateOutputConstantProduct(t *testing.T) {
	p := newTestPool(t, 10_000, 10_000)
	out, err := p.CalculateOutput(250, true)
	if err != nil {
		t.Fatalf("CalculateOutput: %v", err)
	}
	// x=10000,y=10000,k=100_000_000; x'=10250; y'=ceil(k/x')=9757 (100000000/10250=9756.09...)
	// output = 10000-9757 = 243 ... depends on exact ceil; just assert output is positive and < input-equivalent.
	if out == 0 {
		t.Fatal("expected non-zero output")
	}
	if out >= 250 {
		t.Fatalf("output %d should be less than a naive 1:1 swap of 250", out)
	}
}

func TestCalculateOutputRejectsZeroInput(t *testing.T) {
	p := newTestPool(t, 10_000, 10_000)
	if _, err := p.CalculateOutput(0, true); err == nil {
		t.Fatal("expected ZeroSwapAmount")
	}
}

func TestCalculateOutputRejectsEmptyReserves(t *testing.T) {
	p := newTestPool(t, 0, 0)
	if _, err := p.CalculateOutput(100, true); err == nil {
		t.Fatal("expected InsufficientLiquidity on zero reserves")
	}
}

func TestUpdateEMAFirstObservationSetsDirectly(t *testing.T) {
	p := newTestPool(t, 200_000_000_000, 140_000_000_000_000)
	if p.EMAInitialized {
		t.Fatal("expected EMA to start uninitialized")
	}
	if err := p.UpdateEMA(); err != nil {
		t.Fatalf("UpdateEMA: %v", err)
	}
	if !p.EMAInitialized {
		t.Fatal("expected EMA to be initialized after first observation")
	}
	spot, err := p.SpotPrice()
	if err != nil {
		t.Fatalf("SpotPrice: %v", err)
	}
	if p.EMAPrice.Cmp(spot) != 0 {
		t.Fatalf("EMAPrice = %s, want first observation %s", p.EMAPrice, spot)
	}
}

func TestMaybeSnapRestoresEffectiveReserves(t *testing.T) {
	p := newTestPool(t, 10_000, 10_000)
	p.EffectiveSolReserve = 10_250
	p.EffectiveTokenReserve = 9_757
	p.MaybeSnap()
	if p.EffectiveSolReserve != p.SolReserve || p.EffectiveTokenReserve != p.TokenReserve {
		t.Fatal("expected effective reserves to snap to real reserves when both delta_k sums are zero")
	}
}

func TestMaybeSnapNoOpWhileDebtOutstanding(t *testing.T) {
	p := newTestPool(t, 10_000, 10_000)
	p.EffectiveSolReserve = 10_250
	p.EffectiveTokenReserve = 9_757
	p.TotalDeltaKLongs.SetInt64(1)
	p.MaybeSnap()
	if p.EffectiveSolReserve == p.SolReserve {
		t.Fatal("expected no snap while delta_k is outstanding")
	}
}
