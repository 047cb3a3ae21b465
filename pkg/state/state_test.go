package state_test

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/curve"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/position"
	"github.com/facemelt-labs/perpcore/pkg/state"
)

func randomPublicKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key.PublicKey()
}

func TestPoolRoundTrip(t *testing.T) {
	p := pool.New(randomPublicKey(t), randomPublicKey(t), randomPublicKey(t), config.Default())
	p.Phase = pool.PhaseAMM
	p.SolReserve = 12345
	p.TokenReserve = 67890
	p.EffectiveSolReserve = 12000
	p.EffectiveTokenReserve = 68000
	p.TotalDeltaKLongs = big.NewInt(555)
	p.TotalDeltaKShorts = big.NewInt(0)
	p.CumulativeFundingAccumulator = new(big.Int).Lsh(big.NewInt(1), 100)
	p.LastUpdateTimestamp = 1_700_000_000
	p.EMAPrice = big.NewInt(42)
	p.EMAInitialized = true

	data, err := state.MarshalPool(p)
	if err != nil {
		t.Fatalf("MarshalPool: %v", err)
	}
	got, err := state.UnmarshalPool(data)
	if err != nil {
		t.Fatalf("UnmarshalPool: %v", err)
	}

	if !got.TokenMint.Equals(p.TokenMint) {
		t.Fatal("TokenMint mismatch after round trip")
	}
	if got.SolReserve != p.SolReserve || got.TokenReserve != p.TokenReserve {
		t.Fatal("reserve fields mismatch after round trip")
	}
	if got.CumulativeFundingAccumulator.Cmp(p.CumulativeFundingAccumulator) != 0 {
		t.Fatalf("CumulativeFundingAccumulator = %s, want %s", got.CumulativeFundingAccumulator, p.CumulativeFundingAccumulator)
	}
	if got.Phase != p.Phase {
		t.Fatal("Phase mismatch after round trip")
	}
}

func TestCurveRoundTrip(t *testing.T) {
	c, err := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Buy(1_000_000_000); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	data, err := state.MarshalCurve(c)
	if err != nil {
		t.Fatalf("MarshalCurve: %v", err)
	}
	got, err := state.UnmarshalCurve(data)
	if err != nil {
		t.Fatalf("UnmarshalCurve: %v", err)
	}
	if got.SlopeM.Cmp(c.SlopeM) != 0 {
		t.Fatalf("SlopeM = %s, want %s", got.SlopeM, c.SlopeM)
	}
	if got.TokensSold != c.TokensSold || got.SolRaised != c.SolRaised {
		t.Fatal("curve progress mismatch after round trip")
	}
}

func TestPositionRoundTrip(t *testing.T) {
	pos := &position.Position{
		Owner:                   randomPublicKey(t),
		Pool:                    randomPublicKey(t),
		IsLong:                  true,
		Collateral:              100,
		Leverage:                25,
		Size:                    244,
		DeltaK:                  big.NewInt(9_999_999),
		EntryFundingAccumulator: big.NewInt(0),
		Nonce:                   7,
	}

	data, err := state.MarshalPosition(pos)
	if err != nil {
		t.Fatalf("MarshalPosition: %v", err)
	}
	got, err := state.UnmarshalPosition(data)
	if err != nil {
		t.Fatalf("UnmarshalPosition: %v", err)
	}
	if !got.Owner.Equals(pos.Owner) || got.Nonce != pos.Nonce {
		t.Fatal("identity fields mismatch after round trip")
	}
	if got.DeltaK.Cmp(pos.DeltaK) != 0 {
		t.Fatalf("DeltaK = %s, want %s", got.DeltaK, pos.DeltaK)
	}
}
