package types

import (
	"github.com/gagliardetto/solana-go"
)

// MinLeverage and MaxLeverage bound the leverage multiplier accepted by
// leverage_swap, expressed as tenths of a unit (25 == 2.5x).
const (
	MinLeverage = 10
	MaxLeverage = 100
)

// ValidateSwapParams validates the common shape of a spot or curve swap
// request: a positive input amount and a positive minimum output.
func ValidateSwapParams(amountIn, minAmountOut uint64) error {
	if amountIn == 0 {
		return ErrZeroSwapAmount
	}
	if minAmountOut == 0 {
		return NewValidationError("minAmountOut", "must be greater than 0")
	}
	return nil
}

// ValidateLeverage validates the leverage multiplier is within the
// protocol-wide [MinLeverage, MaxLeverage] band (1x-10x, tenths scale).
func ValidateLeverage(leverage uint64) error {
	if leverage < MinLeverage || leverage > MaxLeverage {
		return ErrInvalidLeverage
	}
	return nil
}

// ValidateBondingCurveParams validates the launch_on_curve thresholds.
func ValidateBondingCurveParams(totalSupply, targetSol, targetTokensSold uint64) error {
	if totalSupply == 0 {
		return NewValidationError("totalSupply", "must be greater than 0")
	}
	if targetSol == 0 {
		return NewValidationError("targetSol", "must be greater than 0")
	}
	if targetTokensSold == 0 || targetTokensSold > totalSupply {
		return NewValidationError("targetTokensSold", "must be in (0, totalSupply]")
	}
	return nil
}

// ValidatePublicKey validates an identifier is not the zero key.
func ValidatePublicKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return NewValidationError(name, "cannot be zero")
	}
	return nil
}

// ValidatePublicKeys validates multiple identifiers at once, returning the
// first failure encountered.
func ValidatePublicKeys(keys map[string]solana.PublicKey) error {
	for name, key := range keys {
		if err := ValidatePublicKey(name, key); err != nil {
			return err
		}
	}
	return nil
}
