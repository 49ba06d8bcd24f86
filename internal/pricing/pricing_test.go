package pricing

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"dexstats/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	tkn  = "0x1111111111111111111111111111111111111111"
	dai  = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeGraph struct {
	pools  map[string]*domain.Pool
	tokens map[string]*domain.Token
	err    error
}

func (f *fakeGraph) Pool(_ context.Context, id string) (*domain.Pool, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	p, ok := f.pools[id]
	return p, ok, nil
}

func (f *fakeGraph) Token(_ context.Context, id string) (*domain.Token, bool, error) {
	t, ok := f.tokens[id]
	return t, ok, nil
}

func params() Params {
	return Params{
		WrappedNative:       weth,
		Stablecoins:         NewSet(usdc),
		MinimumNativeLocked: dec("10"),
	}
}

func TestNativePriceInUSD(t *testing.T) {
	pool := &domain.Pool{
		SqrtPrice:   big.NewInt(12345),
		Token0Price: dec("2000"),
		Token1Price: dec("0.0005"),
	}

	assert.True(t, NativePriceInUSD(true, pool).Equal(dec("2000")))
	assert.True(t, NativePriceInUSD(false, pool).Equal(dec("0.0005")))
	assert.True(t, NativePriceInUSD(true, nil).IsZero())

	uninitialised := &domain.Pool{SqrtPrice: big.NewInt(0), Token0Price: dec("5")}
	assert.True(t, NativePriceInUSD(true, uninitialised).IsZero())
}

func TestDerivedNativePrice_FixedPoints(t *testing.T) {
	ctx := context.Background()
	g := &fakeGraph{}

	got, err := DerivedNativePrice(ctx, &domain.Token{ID: weth}, params(), &domain.Bundle{EthPriceUSD: dec("2000")}, g)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("1")))

	got, err = DerivedNativePrice(ctx, &domain.Token{ID: usdc}, params(), &domain.Bundle{EthPriceUSD: dec("2000")}, g)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.0005")))

	// zero native price must not blow up
	got, err = DerivedNativePrice(ctx, &domain.Token{ID: usdc}, params(), &domain.Bundle{EthPriceUSD: decimal.Zero}, g)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDerivedNativePrice_PicksDeepestPoolAboveFloor(t *testing.T) {
	g := &fakeGraph{
		pools: map[string]*domain.Pool{
			// tkn is token0, weth token1: token1Price = weth per tkn
			"deep": {
				ID: "deep", Token0: tkn, Token1: weth,
				Liquidity:              big.NewInt(1000),
				TotalValueLockedToken1: dec("500"),
				Token1Price:            dec("0.01"),
			},
			// thinner pool quoting a very different price
			"thin": {
				ID: "thin", Token0: dai, Token1: tkn,
				Liquidity:              big.NewInt(1000),
				TotalValueLockedToken0: dec("100"),
				Token0Price:            dec("3"),
			},
		},
		tokens: map[string]*domain.Token{
			weth: {ID: weth, DerivedETH: dec("1")},
			dai:  {ID: dai, DerivedETH: dec("0.0005")},
		},
	}
	token := &domain.Token{ID: tkn, WhitelistPools: []string{"thin", "deep"}}

	got, err := DerivedNativePrice(context.Background(), token, params(), &domain.Bundle{EthPriceUSD: dec("2000")}, g)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.01")), "got %s", got)
}

func TestDerivedNativePrice_RejectsThinPools(t *testing.T) {
	g := &fakeGraph{
		pools: map[string]*domain.Pool{
			"p": {
				ID: "p", Token0: tkn, Token1: weth,
				Liquidity:              big.NewInt(1),
				TotalValueLockedToken1: dec("10"), // equal to the floor, not above
				Token1Price:            dec("42"),
			},
			"empty": {
				ID: "empty", Token0: tkn, Token1: weth,
				Liquidity:              big.NewInt(0),
				TotalValueLockedToken1: dec("1000000"),
				Token1Price:            dec("99"),
			},
		},
		tokens: map[string]*domain.Token{weth: {ID: weth, DerivedETH: dec("1")}},
	}
	token := &domain.Token{ID: tkn, WhitelistPools: []string{"p", "empty", "missing"}}

	got, err := DerivedNativePrice(context.Background(), token, params(), &domain.Bundle{EthPriceUSD: dec("2000")}, g)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestDerivedNativePrice_PropagatesLookupErrors(t *testing.T) {
	boom := errors.New("boom")
	g := &fakeGraph{err: boom}
	token := &domain.Token{ID: tkn, WhitelistPools: []string{"p"}}

	_, err := DerivedNativePrice(context.Background(), token, params(), &domain.Bundle{}, g)
	assert.ErrorIs(t, err, boom)
}

func TestTrackedAmountUSD(t *testing.T) {
	bundle := &domain.Bundle{EthPriceUSD: dec("2000")}
	t0 := &domain.Token{ID: weth, DerivedETH: dec("1")}
	t1 := &domain.Token{ID: usdc, DerivedETH: dec("0.0005")}

	// 1 weth = 2000 usd, 3000 usdc = 3000 usd
	a0, a1 := dec("1"), dec("3000")

	both := TrackedAmountUSD(a0, t0, a1, t1, NewSet(weth, usdc), bundle)
	assert.True(t, both.Equal(dec("5000")), "got %s", both)

	only0 := TrackedAmountUSD(a0, t0, a1, t1, NewSet(weth), bundle)
	assert.True(t, only0.Equal(dec("4000")), "got %s", only0)

	only1 := TrackedAmountUSD(a0, t0, a1, t1, NewSet(usdc), bundle)
	assert.True(t, only1.Equal(dec("6000")), "got %s", only1)

	none := TrackedAmountUSD(a0, t0, a1, t1, NewSet(), bundle)
	assert.True(t, none.IsZero())
}
