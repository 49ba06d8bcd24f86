package mathutil

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// tick range of the pool contract, 1.0001^tick stays inside Q64.96
const (
	MinTick int64 = -887272
	MaxTick int64 = 887272
)

var (
	ErrUnexpectedFeeTier = errors.New("unexpected fee tier")
	ErrTickOutOfRange    = errors.New("tick out of range")

	tickBase = decimal.RequireFromString("1.0001")
)

// FastExponentiation value^power by squaring, O(log|power|) multiplications.
// Negative powers are the reciprocal of the positive result
func FastExponentiation(value decimal.Decimal, power int64) decimal.Decimal {
	if power == math.MinInt64 {
		// -MinInt64 overflows back to itself
		return SafeDiv(One, FastExponentiation(value, math.MaxInt64).Mul(value).Round(PowPrecision))
	}
	if power < 0 {
		return SafeDiv(One, FastExponentiation(value, -power))
	}
	if power == 0 {
		return One
	}
	if power == 1 {
		return value
	}

	half := FastExponentiation(value, power/2)
	// x^(2n) = x^n * x^n
	result := half.Mul(half).Round(PowPrecision)
	// x^(2n+1) = x^(2n) * x
	if power%2 == 1 {
		result = result.Mul(value).Round(PowPrecision)
	}
	return result
}

// PriceAtTick 1.0001^tick, the token1/token0 price at a tick boundary
func PriceAtTick(tick int64) decimal.Decimal {
	return FastExponentiation(tickBase, tick)
}

// CheckTick ErrTickOutOfRange outside [MinTick, MaxTick]
func CheckTick(tick int64) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}
	return nil
}

// CheckTickRange both bounds in range and lower strictly below upper
func CheckTickRange(lower, upper int64) error {
	if err := CheckTick(lower); err != nil {
		return err
	}
	if err := CheckTick(upper); err != nil {
		return err
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower %d not below upper %d", ErrTickOutOfRange, lower, upper)
	}
	return nil
}

// FeeTierToTickSpacing fixed mapping of the enabled fee tiers
func FeeTierToTickSpacing(feeTier *big.Int) (int64, error) {
	if feeTier == nil || !feeTier.IsInt64() {
		return 0, fmt.Errorf("%w: %v", ErrUnexpectedFeeTier, feeTier)
	}

	switch feeTier.Int64() {
	case 10000:
		return 200, nil
	case 3000:
		return 60, nil
	case 500:
		return 10, nil
	case 100:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnexpectedFeeTier, feeTier)
}
