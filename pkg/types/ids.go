package types

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// PositionKey identifies a single leveraged position. A position is keyed
// by (pool, owner, nonce) rather than its own address: positions are
// virtual and never custody assets, so there is no vault to derive an
// address from.
type PositionKey struct {
	Pool  solana.PublicKey
	Owner solana.PublicKey
	Nonce uint64
}

// String renders the key for logs and error messages.
func (k PositionKey) String() string {
	return k.Pool.String() + "/" + k.Owner.String() + "/" + strconv.FormatUint(k.Nonce, 10)
}

// NativeSOLMint is the pseudo-mint custody implementations key native SOL
// balances under, since a Pool's real SOL reserve has no SPL mint of its
// own. Mirrors the convention of treating wrapped SOL's mint address as
// the identifier for native SOL accounting.
var NativeSOLMint = solana.WrappedSol
