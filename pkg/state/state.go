// Package state defines the fixed-schema binary records for Pool,
// BondingCurve, and Position, and the conversions between those records
// and their live in-memory counterparts in pkg/pool, pkg/curve, and
// pkg/position. Records are encoded with github.com/gagliardetto/binary's
// Borsh codec, the same library and on-wire convention the teacher used
// to decode pump.fun/pump-amm accounts in pkg/quote and pkg/autofill.
//
// This is not a transport framing layer (the engine has no transport,
// per non-goals); it exists solely to give Pool/BondingCurve/Position the
// "fixed-schema record" shape the data model calls for, the way an
// on-chain account layout would.
package state

import (
	"bytes"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/facemelt-labs/perpcore/pkg/curve"
	"github.com/facemelt-labs/perpcore/pkg/pool"
	"github.com/facemelt-labs/perpcore/pkg/position"
)

// wide128 is the little-endian two-word encoding of a non-negative
// 128-bit-or-narrower value: Lo holds the low 64 bits, Hi the high 64
// bits. big.Int fields (Δk sums, the funding accumulator, the curve
// slope, the EMA price) are narrowed to this shape at the record
// boundary; the live types keep using *big.Int everywhere else.
type wide128 struct {
	Lo uint64
	Hi uint64
}

func toWide128(v *big.Int) wide128 {
	mask64 := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask64)
	hi := new(big.Int).Rsh(v, 64)
	return wide128{Lo: lo.Uint64(), Hi: hi.Uint64()}
}

func (w wide128) toBig() *big.Int {
	hi := new(big.Int).SetUint64(w.Hi)
	hi.Lsh(hi, 64)
	lo := new(big.Int).SetUint64(w.Lo)
	return hi.Or(hi, lo)
}

// PoolRecord is the fixed-schema on-disk/on-wire shape of a Pool.
type PoolRecord struct {
	TokenMint  solana.PublicKey
	TokenVault solana.PublicKey
	Authority  solana.PublicKey

	SolReserve   uint64
	TokenReserve uint64

	EffectiveSolReserve   uint64
	EffectiveTokenReserve uint64

	TotalDeltaKLongs             wide128
	TotalDeltaKShorts            wide128
	CumulativeFundingAccumulator wide128

	LastUpdateTimestamp int64

	EMAPrice       wide128
	EMAInitialized bool

	FundingConstantC                  wide128
	LiquidationDivergenceThresholdPct uint64
	MaxDeltaKBps                      uint64
	EMASmoothingWindow                uint64

	Phase uint8
}

// MarshalPool encodes p as a PoolRecord using Borsh.
func MarshalPool(p *pool.Pool) ([]byte, error) {
	rec := PoolRecord{
		TokenMint:                         p.TokenMint,
		TokenVault:                        p.TokenVault,
		Authority:                         p.Authority,
		SolReserve:                        p.SolReserve,
		TokenReserve:                      p.TokenReserve,
		EffectiveSolReserve:                p.EffectiveSolReserve,
		EffectiveTokenReserve:              p.EffectiveTokenReserve,
		TotalDeltaKLongs:                   toWide128(p.TotalDeltaKLongs),
		TotalDeltaKShorts:                  toWide128(p.TotalDeltaKShorts),
		CumulativeFundingAccumulator:       toWide128(p.CumulativeFundingAccumulator),
		LastUpdateTimestamp:                p.LastUpdateTimestamp,
		EMAPrice:                           toWide128(p.EMAPrice),
		EMAInitialized:                     p.EMAInitialized,
		FundingConstantC:                   toWide128(p.FundingConstantC),
		LiquidationDivergenceThresholdPct:  p.LiquidationDivergenceThresholdPct,
		MaxDeltaKBps:                       p.MaxDeltaKBps,
		EMASmoothingWindow:                 p.EMASmoothingWindow,
		Phase:                              uint8(p.Phase),
	}
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalPool decodes a PoolRecord back into a live Pool.
func UnmarshalPool(data []byte) (*pool.Pool, error) {
	var rec PoolRecord
	if err := bin.NewBinDecoder(data).Decode(&rec); err != nil {
		return nil, err
	}
	return &pool.Pool{
		TokenMint:                         rec.TokenMint,
		TokenVault:                        rec.TokenVault,
		Authority:                         rec.Authority,
		SolReserve:                        rec.SolReserve,
		TokenReserve:                      rec.TokenReserve,
		EffectiveSolReserve:                rec.EffectiveSolReserve,
		EffectiveTokenReserve:              rec.EffectiveTokenReserve,
		TotalDeltaKLongs:                   rec.TotalDeltaKLongs.toBig(),
		TotalDeltaKShorts:                  rec.TotalDeltaKShorts.toBig(),
		CumulativeFundingAccumulator:       rec.CumulativeFundingAccumulator.toBig(),
		LastUpdateTimestamp:                rec.LastUpdateTimestamp,
		EMAPrice:                           rec.EMAPrice.toBig(),
		EMAInitialized:                     rec.EMAInitialized,
		FundingConstantC:                   rec.FundingConstantC.toBig(),
		LiquidationDivergenceThresholdPct:  rec.LiquidationDivergenceThresholdPct,
		MaxDeltaKBps:                       rec.MaxDeltaKBps,
		EMASmoothingWindow:                 rec.EMASmoothingWindow,
		Phase:                              pool.Phase(rec.Phase),
	}, nil
}

// CurveRecord is the fixed-schema on-disk/on-wire shape of a BondingCurve.
type CurveRecord struct {
	SlopeM           wide128
	TokensSold       uint64
	SolRaised        uint64
	TargetSol        uint64
	TargetTokensSold uint64
	Status           uint8
}

// MarshalCurve encodes c as a CurveRecord using Borsh.
func MarshalCurve(c *curve.Curve) ([]byte, error) {
	rec := CurveRecord{
		SlopeM:           toWide128(c.SlopeM),
		TokensSold:       c.TokensSold,
		SolRaised:        c.SolRaised,
		TargetSol:        c.TargetSol,
		TargetTokensSold: c.TargetTokensSold,
		Status:           uint8(c.Status),
	}
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCurve decodes a CurveRecord back into a live Curve.
func UnmarshalCurve(data []byte) (*curve.Curve, error) {
	var rec CurveRecord
	if err := bin.NewBinDecoder(data).Decode(&rec); err != nil {
		return nil, err
	}
	return &curve.Curve{
		SlopeM:           rec.SlopeM.toBig(),
		TokensSold:       rec.TokensSold,
		SolRaised:        rec.SolRaised,
		TargetSol:        rec.TargetSol,
		TargetTokensSold: rec.TargetTokensSold,
		Status:           curve.Status(rec.Status),
	}, nil
}

// PositionRecord is the fixed-schema on-disk/on-wire shape of a Position,
// keyed by (pool, owner, nonce) per the data model.
type PositionRecord struct {
	Owner solana.PublicKey
	Pool  solana.PublicKey

	IsLong     bool
	Collateral uint64
	Leverage   uint64
	Size       uint64

	DeltaK                  wide128
	EntryFundingAccumulator wide128

	Nonce uint64
}

// MarshalPosition encodes pos as a PositionRecord using Borsh.
func MarshalPosition(pos *position.Position) ([]byte, error) {
	rec := PositionRecord{
		Owner:                   pos.Owner,
		Pool:                    pos.Pool,
		IsLong:                  pos.IsLong,
		Collateral:              pos.Collateral,
		Leverage:                pos.Leverage,
		Size:                    pos.Size,
		DeltaK:                  toWide128(pos.DeltaK),
		EntryFundingAccumulator: toWide128(pos.EntryFundingAccumulator),
		Nonce:                   pos.Nonce,
	}
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalPosition decodes a PositionRecord back into a live Position.
func UnmarshalPosition(data []byte) (*position.Position, error) {
	var rec PositionRecord
	if err := bin.NewBinDecoder(data).Decode(&rec); err != nil {
		return nil, err
	}
	return &position.Position{
		Owner:                   rec.Owner,
		Pool:                    rec.Pool,
		IsLong:                  rec.IsLong,
		Collateral:              rec.Collateral,
		Leverage:                rec.Leverage,
		Size:                    rec.Size,
		DeltaK:                  rec.DeltaK.toBig(),
		EntryFundingAccumulator: rec.EntryFundingAccumulator.toBig(),
		Nonce:                   rec.Nonce,
	}, nil
}
