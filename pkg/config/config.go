// Package config holds the protocol-wide constants and runtime settings
// the orchestrator and its subsystems are parameterized by: fixed-point
// scales, bonding-curve launch defaults, funding and liquidation
// parameters, and the logger every operation threads through.
package config

import (
	"io"
	"math/big"
	"time"

	"github.com/rs/zerolog"
)

// PRECISION is the fixed-point fractional scale used throughout the
// funding accumulator and remaining-factor math (2^32).
var PRECISION = new(big.Int).Lsh(big.NewInt(1), 32)

// SCALE is the fixed-point scale used by the bonding-curve slope (10^18).
var SCALE = func() *big.Int {
	s, ok := new(big.Int).SetString("1000000000000000000", 10)
	if !ok {
		panic("config: invalid SCALE literal")
	}
	return s
}()

// PricePrecision scales spot/EMA price quotes. Chosen independently of
// SCALE/PRECISION since it only ever appears in ratios reported to callers,
// never fed back into pool accounting.
var PricePrecision = new(big.Int).SetUint64(1_000_000_000_000)

// BondingCurveDecimals is the assumed decimal precision of the launched
// token, used only for display/derivation convenience by callers.
const BondingCurveDecimals = 6

// Default bonding-curve launch thresholds (spec §6, launch_on_curve).
const (
	DefaultTotalSupply      uint64 = 420_000_000_000_000
	DefaultTargetSol        uint64 = 200_000_000_000
	DefaultTargetTokensSold uint64 = 280_000_000_000_000
)

// DeltaKSnapDivisor is the rounding-guard divisor applied when amortizing
// Δk: once a side's remaining total_delta_k falls below effective_k /
// DeltaKSnapDivisor, it is snapped to zero rather than left as dust.
const DeltaKSnapDivisor = 10_000

// LiquidatorPayoutCapBps bounds a liquidation payout to at most this many
// basis points of the position's gross value (5%, spec §4.5.2).
const LiquidatorPayoutCapBps = 500

// Config aggregates every tunable constant a Pool/BondingCurve instance is
// configured with at launch time, plus the logger operations are traced
// through. Mirrors the teacher's RPCConfig: a plain struct with an
// embedded zerolog.Logger and a Default constructor, built via functional
// options rather than partial-struct literals.
type Config struct {
	// FundingConstantC is the per-second funding-rate coefficient C in
	// funding_rate = C * ratio^2, fixed-point scaled by PRECISION.
	FundingConstantC *big.Int

	// LiquidationDivergenceThresholdPct bounds how far spot may diverge
	// from the EMA (as an integer percent) before liquidate is refused.
	LiquidationDivergenceThresholdPct uint64

	// MaxDeltaKBps, when non-zero, caps a single leverage_open's Δk at
	// this many basis points of the effective k at open time, in addition
	// to the always-on ExcessiveLeverage guard. Left at zero (off) by
	// default: the reference program carries this check commented out
	// (see DESIGN.md), and the spec's own resolution of the open question
	// leaves the cap off, relying solely on ExcessiveLeverage.
	MaxDeltaKBps uint64

	// EMASmoothingWindow sets the EMA weight alpha = 2/(N+1), N samples.
	EMASmoothingWindow uint64

	Logger zerolog.Logger
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithFundingConstantC overrides the funding-rate coefficient.
func WithFundingConstantC(c *big.Int) Option {
	return func(cfg *Config) { cfg.FundingConstantC = new(big.Int).Set(c) }
}

// WithLiquidationDivergenceThresholdPct overrides the EMA divergence guard.
func WithLiquidationDivergenceThresholdPct(pct uint64) Option {
	return func(cfg *Config) { cfg.LiquidationDivergenceThresholdPct = pct }
}

// WithMaxDeltaKBps enables the optional per-open Δk cap.
func WithMaxDeltaKBps(bps uint64) Option {
	return func(cfg *Config) { cfg.MaxDeltaKBps = bps }
}

// WithEMASmoothingWindow overrides the EMA sample window.
func WithEMASmoothingWindow(n uint64) Option {
	return func(cfg *Config) { cfg.EMASmoothingWindow = n }
}

// WithLogger attaches a logger; the zero Config otherwise discards logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *Config) { cfg.Logger = logger }
}

// Default returns the protocol's default configuration: funding_constant_c
// = PRECISION/10000, a 10% liquidation divergence band, the Δk cap left
// off, and a 60-sample EMA window (spec §4.4.2's "e.g. a 60-sample
// window"), with options applied on top.
func Default(opts ...Option) Config {
	cfg := Config{
		FundingConstantC:                  new(big.Int).Div(PRECISION, big.NewInt(10_000)),
		LiquidationDivergenceThresholdPct: 10,
		MaxDeltaKBps:                      0,
		EMASmoothingWindow:                60,
		Logger:                            zerolog.New(io.Discard).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EMAAlphaNumerator is the constant numerator of alpha = 2/(N+1).
func EMAAlphaNumerator() *big.Int { return big.NewInt(2) }

// EMAAlphaDenominator returns N+1 for the configured smoothing window.
func (c Config) EMAAlphaDenominator() *big.Int {
	return new(big.Int).SetUint64(c.EMASmoothingWindow + 1)
}

// DefaultTimeout is carried over from the teacher's RPCConfig shape for
// hosts that wrap the orchestrator with their own I/O; the engine itself
// never blocks, so this is advisory only.
const DefaultTimeout = 20 * time.Second
