// Package mathutil exact decimal primitives used by pricing and state transitions
package mathutil

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// DivPrecision decimal places kept by every division
	DivPrecision int32 = 60
	// PowPrecision decimal places kept by intermediate products of FastExponentiation
	PowPrecision int32 = 60
)

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	Two  = decimal.NewFromInt(2)
	Half = decimal.New(5, -1)

	// 2^192, denominator of a squared Q64.96 value
	q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)
)

// SafeDiv returns 0 when the denominator is 0
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return a.DivRound(b, DivPrecision)
}

// ExponentToDecimal 10^n
func ExponentToDecimal(n int32) decimal.Decimal {
	return decimal.New(1, n)
}

// ConvertTokenToDecimal raw on-chain amount -> token units
func ConvertTokenToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return Zero
	}
	d := decimal.NewFromBigInt(amount, 0)
	if decimals == 0 {
		return d
	}
	return d.Shift(-decimals)
}

// ConvertEthToDecimal wei -> ether
func ConvertEthToDecimal(wei *big.Int) decimal.Decimal {
	return ConvertTokenToDecimal(wei, 18)
}

// BigToDecimal integer as decimal, nil is zero
func BigToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

// AddBig returns a+b without touching either operand; nil is zero
func AddBig(a, b *big.Int) *big.Int {
	return new(big.Int).Add(orZero(a), orZero(b))
}

// SubBig returns a-b without touching either operand; nil is zero
func SubBig(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(orZero(a), orZero(b))
}

// Inc returns v+1
func Inc(v *big.Int) *big.Int {
	return AddBig(v, big.NewInt(1))
}

// CopyBig detached copy, nil stays nil
func CopyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
