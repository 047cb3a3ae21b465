package custody_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/custody"
)

func randomPublicKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key.PublicKey()
}

func TestLedgerDepositWithdraw(t *testing.T) {
	ledger := custody.NewLedger()
	mint := randomPublicKey(t)
	owner := randomPublicKey(t)
	ctx := context.Background()

	if err := ledger.Deposit(ctx, mint, owner, 100); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if got := ledger.Balance(mint, owner); got != 100 {
		t.Fatalf("Balance = %d, want 100", got)
	}
	if err := ledger.Withdraw(ctx, mint, owner, 40); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got := ledger.Balance(mint, owner); got != 60 {
		t.Fatalf("Balance = %d, want 60", got)
	}
}

func TestLedgerWithdrawRejectsOverdraft(t *testing.T) {
	ledger := custody.NewLedger()
	mint := randomPublicKey(t)
	owner := randomPublicKey(t)
	if err := ledger.Withdraw(context.Background(), mint, owner, 1); err == nil {
		t.Fatal("expected error withdrawing from an empty balance")
	}
}

func TestLedgerAuthorityDisable(t *testing.T) {
	ledger := custody.NewLedger()
	mint := randomPublicKey(t)
	if ledger.MintAuthorityDisabled(mint) {
		t.Fatal("expected mint authority to start enabled")
	}
	if err := ledger.DisableMintAuthority(context.Background(), mint); err != nil {
		t.Fatalf("DisableMintAuthority: %v", err)
	}
	if !ledger.MintAuthorityDisabled(mint) {
		t.Fatal("expected mint authority to be disabled")
	}
}
