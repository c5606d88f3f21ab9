package core

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Fee rates are percentages carried as decimals ("3" = 3%). The rate is
// reduced to an integral numerator against a fixed scale so the fee itself is
// computed entirely in integer arithmetic: no float, no decimal division.
const feeScaleFactor = 10_000

// feeDecimalPrecision is the divisor that turns scaled rate atomics back into
// a feeScaleFactor-relative numerator. Rate atomics carry 18 decimal places,
// so dividing by 10^20 folds in the percent-to-fraction conversion.
var feeDecimalPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)

const rateAtomicPlaces = 18

// ComputeFee returns floor(principal * rate%) using a 128-bit intermediate
// product. A zero rate short-circuits to zero without touching the rate's
// representation at all.
func ComputeFee(principal Amount, rate decimal.Decimal) (Amount, error) {
	if rate.IsZero() {
		return 0, nil
	}

	numerator, err := FeeRateNumerator(rate)
	if err != nil {
		return 0, err
	}

	hi, lo := bits.Mul64(uint64(principal), numerator)
	// Div64 requires hi < divisor; a larger hi means the quotient would not
	// fit in 64 bits.
	if hi >= feeScaleFactor {
		return 0, fmt.Errorf("%w: fee on %d with numerator %d exceeds 64 bits", ErrAmountOverflow, principal, numerator)
	}
	quo, _ := bits.Div64(hi, lo, feeScaleFactor)
	return Amount(quo), nil
}

// FeeRateNumerator converts a percentage rate into its integral numerator
// relative to feeScaleFactor: numerator/10000 == rate/100. The conversion
// multiplies the rate's fixed-point atomics by the scale factor and
// integer-divides by the precision constant, so no non-integral intermediate
// is ever materialized.
func FeeRateNumerator(rate decimal.Decimal) (uint64, error) {
	if rate.IsNegative() {
		return 0, fmt.Errorf("%w: negative fee rate %s", ErrAmountOverflow, rate)
	}

	atomics := rate.Shift(rateAtomicPlaces).Truncate(0).BigInt()
	numerator := new(big.Int).Mul(atomics, big.NewInt(feeScaleFactor))
	numerator.Quo(numerator, feeDecimalPrecision)
	if !numerator.IsUint64() {
		return 0, fmt.Errorf("%w: fee rate %s numerator exceeds 64 bits", ErrAmountOverflow, rate)
	}
	return numerator.Uint64(), nil
}
