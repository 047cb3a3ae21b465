// Package custody defines the external-collaborator contracts the
// orchestrator calls into for anything that touches physical asset
// movement or mint authority: these are interface boundaries only, per
// the non-goals around wallet handling, signature verification, and
// ledger-specific address derivation. The package also ships an
// in-memory reference implementation suitable for simulation and tests,
// the same role the teacher's wallet.Local plays for signing.
package custody

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Vault moves physical balances into and out of a pool's custody. The
// orchestrator calls Deposit whenever a swap, curve trade, or leverage
// open increases a real reserve, and Withdraw whenever a sell, close, or
// liquidation decreases one. Implementations own signature verification,
// account-layout plumbing, and rent — none of which this engine models.
type Vault interface {
	Deposit(ctx context.Context, mint solana.PublicKey, from solana.PublicKey, amount uint64) error
	Withdraw(ctx context.Context, mint solana.PublicKey, to solana.PublicKey, amount uint64) error
}

// AuthorityController hands off or exercises mint-level authorities. The
// orchestrator calls DisableMintAuthority and DisableFreezeAuthority once,
// at launch_on_curve and launch, to make the launched supply immutable.
type AuthorityController interface {
	DisableMintAuthority(ctx context.Context, mint solana.PublicKey) error
	DisableFreezeAuthority(ctx context.Context, mint solana.PublicKey) error
}

// Ledger is an in-memory Vault + AuthorityController: it tracks balances
// and authority state in plain maps rather than touching any real
// ledger. It exists for simulation (cmd/curvesim) and orchestrator tests,
// where the point is to exercise the engine's accounting, not a real
// transport.
type Ledger struct {
	balances       map[string]uint64
	mintDisabled   map[string]bool
	freezeDisabled map[string]bool
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:       make(map[string]uint64),
		mintDisabled:   make(map[string]bool),
		freezeDisabled: make(map[string]bool),
	}
}

func key(mint, owner solana.PublicKey) string {
	return mint.String() + "/" + owner.String()
}

// Deposit credits owner's balance of mint by amount.
func (l *Ledger) Deposit(_ context.Context, mint solana.PublicKey, owner solana.PublicKey, amount uint64) error {
	l.balances[key(mint, owner)] += amount
	return nil
}

// Withdraw debits owner's balance of mint by amount, failing if the
// balance would go negative.
func (l *Ledger) Withdraw(_ context.Context, mint solana.PublicKey, owner solana.PublicKey, amount uint64) error {
	k := key(mint, owner)
	if l.balances[k] < amount {
		return errInsufficientLedgerBalance{mint: mint, owner: owner, have: l.balances[k], want: amount}
	}
	l.balances[k] -= amount
	return nil
}

// Balance returns owner's tracked balance of mint.
func (l *Ledger) Balance(mint, owner solana.PublicKey) uint64 {
	return l.balances[key(mint, owner)]
}

// DisableMintAuthority marks mint as no longer mintable.
func (l *Ledger) DisableMintAuthority(_ context.Context, mint solana.PublicKey) error {
	l.mintDisabled[mint.String()] = true
	return nil
}

// DisableFreezeAuthority marks mint as no longer freezable.
func (l *Ledger) DisableFreezeAuthority(_ context.Context, mint solana.PublicKey) error {
	l.freezeDisabled[mint.String()] = true
	return nil
}

// MintAuthorityDisabled reports whether DisableMintAuthority has run for mint.
func (l *Ledger) MintAuthorityDisabled(mint solana.PublicKey) bool {
	return l.mintDisabled[mint.String()]
}

// FreezeAuthorityDisabled reports whether DisableFreezeAuthority has run for mint.
func (l *Ledger) FreezeAuthorityDisabled(mint solana.PublicKey) bool {
	return l.freezeDisabled[mint.String()]
}

type errInsufficientLedgerBalance struct {
	mint, owner solana.PublicKey
	have, want  uint64
}

func (e errInsufficientLedgerBalance) Error() string {
	return "custody: insufficient balance for " + e.owner.String() + " of " + e.mint.String()
}
