package mathutil

import (
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertApprox(t *testing.T, want, got decimal.Decimal, tolerance string) {
	t.Helper()
	diff := want.Sub(got).Abs()
	assert.Truef(t, diff.LessThanOrEqual(dec(tolerance)), "want %s got %s (diff %s)", want, got, diff)
}

func TestSafeDiv_ZeroDenominator(t *testing.T) {
	for _, x := range []string{"0", "1", "-5", "123456789.123456789", "1e-30"} {
		got := SafeDiv(dec(x), Zero)
		assert.True(t, got.IsZero(), "SafeDiv(%s, 0) = %s", x, got)
	}
}

func TestSafeDiv_RoundTrip(t *testing.T) {
	cases := []struct{ x, y string }{
		{"1", "3"},
		{"100", "7"},
		{"-42.5", "0.0003"},
		{"3000.123", "1234567.891"},
	}
	for _, c := range cases {
		got := SafeDiv(dec(c.x), dec(c.y)).Mul(dec(c.y))
		assertApprox(t, dec(c.x), got, "1e-50")
	}
}

func TestFastExponentiation(t *testing.T) {
	assert.True(t, FastExponentiation(dec("2"), 10).Equal(dec("1024")))
	assert.True(t, FastExponentiation(dec("3"), 0).Equal(One))
	assert.True(t, FastExponentiation(dec("7"), 1).Equal(dec("7")))
	assert.True(t, FastExponentiation(dec("2"), -2).Equal(dec("0.25")))
	assert.True(t, FastExponentiation(Zero, -3).IsZero(), "reciprocal of zero is zero")
	assert.True(t, FastExponentiation(One, math.MinInt64).Equal(One), "most negative power terminates")
	assert.True(t, FastExponentiation(dec("-1"), math.MinInt64).Equal(One), "even power")
}

func TestCheckTick(t *testing.T) {
	assert.NoError(t, CheckTick(MinTick))
	assert.NoError(t, CheckTick(MaxTick))
	assert.ErrorIs(t, CheckTick(MaxTick+1), ErrTickOutOfRange)
	assert.ErrorIs(t, CheckTick(math.MinInt64), ErrTickOutOfRange)

	assert.NoError(t, CheckTickRange(-60, 60))
	assert.ErrorIs(t, CheckTickRange(60, 60), ErrTickOutOfRange)
	assert.ErrorIs(t, CheckTickRange(60, -60), ErrTickOutOfRange)
	assert.ErrorIs(t, CheckTickRange(MinTick-1, 0), ErrTickOutOfRange)
}

func TestPriceAtTick_KnownValues(t *testing.T) {
	assert.True(t, PriceAtTick(0).Equal(One))
	assert.True(t, PriceAtTick(1).Equal(dec("1.0001")))
	assert.True(t, PriceAtTick(2).Equal(dec("1.00020001")))
	assert.True(t, PriceAtTick(3).Equal(dec("1.000300030001")))
	assertApprox(t, dec("0.999900009999000099990000999900009999"), PriceAtTick(-1), "1e-35")
}

func TestPriceAtTick_ReciprocalLaw(t *testing.T) {
	for _, tick := range []int64{1, 60, 100, 887, 23027, 100000, 443636, 887272} {
		prod := PriceAtTick(tick).Mul(PriceAtTick(-tick))
		assertApprox(t, One, prod, "1e-15")
	}
}

func TestFeeTierToTickSpacing(t *testing.T) {
	cases := map[int64]int64{10000: 200, 3000: 60, 500: 10, 100: 1}
	for fee, spacing := range cases {
		got, err := FeeTierToTickSpacing(big.NewInt(fee))
		require.NoError(t, err)
		assert.Equal(t, spacing, got)
	}

	_, err := FeeTierToTickSpacing(big.NewInt(2500))
	assert.ErrorIs(t, err, ErrUnexpectedFeeTier)

	_, err = FeeTierToTickSpacing(nil)
	assert.ErrorIs(t, err, ErrUnexpectedFeeTier)
}

func TestSqrtPriceX96ToTokenPrices(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)

	p0, p1 := SqrtPriceX96ToTokenPrices(q96, 18, 18)
	assert.True(t, p0.Equal(One))
	assert.True(t, p1.Equal(One))

	// sqrt = 2 -> raw price 4
	p0, p1 = SqrtPriceX96ToTokenPrices(new(big.Int).Mul(q96, big.NewInt(2)), 18, 18)
	assert.True(t, p1.Equal(dec("4")))
	assert.True(t, p0.Equal(dec("0.25")))

	// decimals shift: token0 18, token1 6
	p0, p1 = SqrtPriceX96ToTokenPrices(q96, 18, 6)
	assert.True(t, p1.Equal(dec("1000000000000")))
	assert.True(t, p0.Equal(dec("0.000000000001")))
}

func TestSqrtPriceX96ToTokenPrices_ZeroPrice(t *testing.T) {
	p0, p1 := SqrtPriceX96ToTokenPrices(big.NewInt(0), 18, 6)
	assert.True(t, p0.IsZero())
	assert.True(t, p1.IsZero())

	p0, p1 = SqrtPriceX96ToTokenPrices(nil, 18, 6)
	assert.True(t, p0.IsZero())
	assert.True(t, p1.IsZero())
}

func TestConvertTokenToDecimal(t *testing.T) {
	assert.True(t, ConvertTokenToDecimal(big.NewInt(1_500_000), 6).Equal(dec("1.5")))
	assert.True(t, ConvertTokenToDecimal(big.NewInt(-2_000_000), 6).Equal(dec("-2")))
	assert.True(t, ConvertTokenToDecimal(big.NewInt(42), 0).Equal(dec("42")))
	assert.True(t, ConvertTokenToDecimal(nil, 18).IsZero())

	wei, _ := new(big.Int).SetString("1230000000000000000", 10)
	assert.True(t, ConvertEthToDecimal(wei).Equal(dec("1.23")))
}

func TestBigHelpers_DoNotMutate(t *testing.T) {
	a := big.NewInt(10)
	b := big.NewInt(3)

	assert.Equal(t, int64(13), AddBig(a, b).Int64())
	assert.Equal(t, int64(7), SubBig(a, b).Int64())
	assert.Equal(t, int64(11), Inc(a).Int64())
	assert.Equal(t, int64(-3), SubBig(nil, b).Int64())

	assert.Equal(t, int64(10), a.Int64())
	assert.Equal(t, int64(3), b.Int64())
}
