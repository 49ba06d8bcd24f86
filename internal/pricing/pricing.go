// Package pricing derives native-asset and USD prices from pool state.
//
// Prices flow from one designated stablecoin/native reference pool (native USD price)
// and the whitelisted pools of every token (token price in native units). Pools whose
// native-side liquidity does not exceed the configured floor are never used as a
// price source.
package pricing

import (
	"context"
	"fmt"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"

	"github.com/shopspring/decimal"
)

// Graph read access to pools and tokens of one chain
type Graph interface {
	Pool(ctx context.Context, id string) (*domain.Pool, bool, error)
	Token(ctx context.Context, id string) (*domain.Token, bool, error)
}

// Set of lower-case addresses
type Set map[string]struct{}

func NewSet(addrs ...string) Set {
	s := make(Set, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

func (s Set) Has(addr string) bool {
	_, ok := s[addr]
	return ok
}

// Params chain pricing configuration
type Params struct {
	WrappedNative       string
	Stablecoins         Set
	MinimumNativeLocked decimal.Decimal
}

// NativePriceInUSD reads the native USD price off the reference pool, stablecoin side.
// Missing or uninitialised pool gives zero
func NativePriceInUSD(stablecoinIsToken0 bool, pool *domain.Pool) decimal.Decimal {
	if pool == nil || !pool.Initialized() {
		return mathutil.Zero
	}
	if stablecoinIsToken0 {
		return pool.Token0Price
	}
	return pool.Token1Price
}

// DerivedNativePrice price of token in native units.
//
// The wrapped native token is 1, stablecoins are 1/ethPriceUSD. Any other token is priced
// through the whitelisted pool holding the most native value on the counterpart side,
// provided that value is above p.MinimumNativeLocked; zero when no pool qualifies
func DerivedNativePrice(ctx context.Context, token *domain.Token, p Params, bundle *domain.Bundle, g Graph) (decimal.Decimal, error) {
	if token.ID == p.WrappedNative {
		return mathutil.One, nil
	}
	if p.Stablecoins.Has(token.ID) {
		return mathutil.SafeDiv(mathutil.One, bundle.EthPriceUSD), nil
	}

	largestLocked := mathutil.Zero
	priceSoFar := mathutil.Zero

	for _, poolID := range token.WhitelistPools {
		pool, ok, err := g.Pool(ctx, poolID)
		if err != nil {
			return mathutil.Zero, fmt.Errorf("load whitelist pool %s: %w", poolID, err)
		}
		if !ok || pool.Liquidity == nil || pool.Liquidity.Sign() <= 0 {
			continue
		}

		var (
			counterpartID string
			counterTVL    decimal.Decimal
			rate          decimal.Decimal
		)
		switch token.ID {
		case pool.Token0:
			// token1 per token0
			counterpartID, counterTVL, rate = pool.Token1, pool.TotalValueLockedToken1, pool.Token1Price
		case pool.Token1:
			counterpartID, counterTVL, rate = pool.Token0, pool.TotalValueLockedToken0, pool.Token0Price
		default:
			continue
		}

		counterpart, ok, err := g.Token(ctx, counterpartID)
		if err != nil {
			return mathutil.Zero, fmt.Errorf("load counterpart token %s: %w", counterpartID, err)
		}
		if !ok {
			continue
		}

		nativeLocked := counterTVL.Mul(counterpart.DerivedETH)
		if nativeLocked.GreaterThan(largestLocked) && nativeLocked.GreaterThan(p.MinimumNativeLocked) {
			largestLocked = nativeLocked
			priceSoFar = rate.Mul(counterpart.DerivedETH)
		}
	}

	return priceSoFar, nil
}

// TrackedAmountUSD USD value of the whitelisted legs of a two-token amount.
// Both legs whitelisted gives their sum; a single whitelisted leg counts twice;
// no whitelisted leg gives zero. Callers that report per-side volume halve the result
func TrackedAmountUSD(
	amount0 decimal.Decimal, token0 *domain.Token,
	amount1 decimal.Decimal, token1 *domain.Token,
	whitelist Set, bundle *domain.Bundle,
) decimal.Decimal {
	price0USD := token0.PriceUSD(bundle)
	price1USD := token1.PriceUSD(bundle)

	wl0 := whitelist.Has(token0.ID)
	wl1 := whitelist.Has(token1.ID)

	switch {
	case wl0 && wl1:
		return amount0.Mul(price0USD).Add(amount1.Mul(price1USD))
	case wl0:
		return amount0.Mul(price0USD).Mul(mathutil.Two)
	case wl1:
		return amount1.Mul(price1USD).Mul(mathutil.Two)
	}
	return mathutil.Zero
}
