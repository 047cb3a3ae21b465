package curve_test

import (
	"testing"

	"github.com/facemelt-labs/perpcore/pkg/curve"
)

func TestNewRejectsInvalidParams(t *testing.T) {
	if _, err := curve.New(0, 1, 1); err == nil {
		t.Fatal("expected error for zero total supply")
	}
	if _, err := curve.New(100, 0, 1); err == nil {
		t.Fatal("expected error for zero target sol")
	}
	if _, err := curve.New(100, 1, 0); err == nil {
		t.Fatal("expected error for zero target tokens sold")
	}
	if _, err := curve.New(100, 1, 200); err == nil {
		t.Fatal("expected error when target tokens sold exceeds total supply")
	}
}

func TestBuyAndGraduate(t *testing.T) {
	const (
		totalSupply      = 420_000_000_000_000
		targetSol        = 200_000_000_000
		targetTokensSold = 280_000_000_000_000
	)
	c, err := curve.New(totalSupply, targetSol, targetTokensSold)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := c.Buy(targetSol)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if !result.Graduated {
		t.Fatal("expected curve to graduate after buying the full target")
	}
	if c.TokensSold != targetTokensSold {
		t.Fatalf("TokensSold = %d, want %d", c.TokensSold, targetTokensSold)
	}
	if c.SolRaised != targetSol {
		t.Fatalf("SolRaised = %d, want %d", c.SolRaised, targetSol)
	}
	if result.Refund != 0 {
		t.Fatalf("expected zero refund buying exactly the target, got %d", result.Refund)
	}
}

func TestBuyCapsAtTargetAndRefunds(t *testing.T) {
	c, err := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Overshoot the target by a wide margin; expect a capped buy and a
	// non-zero refund, with the curve landing exactly at the target.
	result, err := c.Buy(400_000_000_000)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if !result.Graduated {
		t.Fatal("expected graduation")
	}
	if c.TokensSold != 280_000_000_000_000 {
		t.Fatalf("TokensSold = %d, want exactly the target", c.TokensSold)
	}
	if result.Refund == 0 {
		t.Fatal("expected a non-zero refund on an overshooting buy")
	}
	if result.SolSpent+result.Refund != 400_000_000_000 {
		t.Fatalf("sol_spent + refund = %d, want 400_000_000_000", result.SolSpent+result.Refund)
	}
}

func TestBuyRejectsZeroAmount(t *testing.T) {
	c, _ := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	if _, err := c.Buy(0); err == nil {
		t.Fatal("expected ZeroSwapAmount")
	}
}

func TestSellRejectsOversell(t *testing.T) {
	c, _ := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	if _, err := c.Buy(1_000_000_000); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := c.Sell(c.TokensSold + 1); err == nil {
		t.Fatal("expected InsufficientTokensSold selling more than was ever sold")
	}
}

func TestBuyThenSellRoundTripDoesNotProfit(t *testing.T) {
	c, _ := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	buyResult, err := c.Buy(1_000_000_000)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	solOut, err := c.Sell(buyResult.TokensOut)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if solOut > buyResult.SolSpent {
		t.Fatalf("sell yielded %d sol for a buy that cost %d: round trip profited", solOut, buyResult.SolSpent)
	}
}

func TestBuyAfterGraduationFails(t *testing.T) {
	c, _ := curve.New(420_000_000_000_000, 200_000_000_000, 280_000_000_000_000)
	if _, err := c.Buy(200_000_000_000); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := c.Buy(1); err == nil {
		t.Fatal("expected BondingCurveAlreadyGraduated on a second buy")
	}
}
