package core

import (
	"errors"
	"math"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func rate(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid rate %q: %v", s, err)
	}
	return d
}

func TestComputeFee_ZeroRateShortCircuits(t *testing.T) {
	fee, err := ComputeFee(1_000_000, decimal.Zero)
	check.NoError(t, err)
	check.Equal(t, Amount(0), fee)
}

func TestComputeFee_ThreePercent(t *testing.T) {
	// 3% of 1000 = 30, of 1500 = 45, of 970 = 29 (floor of 29.1)
	fee, err := ComputeFee(1000, rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, Amount(30), fee)

	fee, err = ComputeFee(1500, rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, Amount(45), fee)

	fee, err = ComputeFee(970, rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, Amount(29), fee)
}

func TestComputeFee_TruncatesTowardZero(t *testing.T) {
	// 3% of 33 = 0.99, truncated to 0
	fee, err := ComputeFee(33, rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, Amount(0), fee)

	// 3% of 34 = 1.02, truncated to 1
	fee, err = ComputeFee(34, rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, Amount(1), fee)
}

func TestComputeFee_FractionalPercent(t *testing.T) {
	// 0.25% of 10000 = 25
	fee, err := ComputeFee(10_000, rate(t, "0.25"))
	check.NoError(t, err)
	check.Equal(t, Amount(25), fee)

	// Sub-basis-point rates fall below the scale and truncate to a zero
	// numerator: 0.001% scales to 0/10000.
	fee, err = ComputeFee(10_000, rate(t, "0.001"))
	check.NoError(t, err)
	check.Equal(t, Amount(0), fee)
}

func TestComputeFee_LargePrincipalNoOverflow(t *testing.T) {
	// The 128-bit intermediate keeps even a full-range principal at 100%
	// exact: fee = principal.
	fee, err := ComputeFee(Amount(math.MaxUint64), rate(t, "100"))
	check.NoError(t, err)
	check.Equal(t, Amount(math.MaxUint64), fee)
}

func TestComputeFee_OverflowingNarrowingFails(t *testing.T) {
	// Rates above 100% can push the quotient past 64 bits; the narrowing
	// check must catch it rather than wrap.
	_, err := ComputeFee(Amount(math.MaxUint64), rate(t, "200"))
	check.Error(t, err)
	check.True(t, errors.Is(err, ErrAmountOverflow))
}

func TestComputeFee_NegativeRateFails(t *testing.T) {
	_, err := ComputeFee(1000, rate(t, "-1"))
	check.Error(t, err)
	check.True(t, errors.Is(err, ErrAmountOverflow))
}

func TestComputeFee_BoundedByPrincipal(t *testing.T) {
	// For every rate in [0, 100] the fee stays within [0, principal].
	principals := []Amount{0, 1, 7, 999, 1000, 123_456_789, math.MaxUint64 / 2}
	rates := []string{"0", "0.01", "0.5", "1", "3", "25", "99.99", "100"}

	for _, p := range principals {
		for _, r := range rates {
			fee, err := ComputeFee(p, rate(t, r))
			check.NoError(t, err)
			check.True(t, fee <= p)
		}
	}
}

func TestFeeRateNumerator(t *testing.T) {
	// numerator/10000 == rate/100
	num, err := FeeRateNumerator(rate(t, "3"))
	check.NoError(t, err)
	check.Equal(t, uint64(300), num)

	num, err = FeeRateNumerator(rate(t, "100"))
	check.NoError(t, err)
	check.Equal(t, uint64(10_000), num)

	num, err = FeeRateNumerator(rate(t, "0.25"))
	check.NoError(t, err)
	check.Equal(t, uint64(25), num)
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(1000, 500)
	check.NoError(t, err)
	check.Equal(t, Amount(1500), sum)

	_, err = CheckedAdd(Amount(math.MaxUint64), 1)
	check.Error(t, err)
	check.True(t, errors.Is(err, ErrAmountOverflow))
}

func TestCheckedSub(t *testing.T) {
	diff, err := CheckedSub(1500, 45)
	check.NoError(t, err)
	check.Equal(t, Amount(1455), diff)

	_, err = CheckedSub(44, 45)
	check.Error(t, err)
	check.True(t, errors.Is(err, ErrAmountOverflow))
}
