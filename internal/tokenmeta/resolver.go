// Package tokenmeta resolves ERC-20 metadata: static overrides first, then a Fetcher.
// Symbol, name and total supply degrade to defaults; missing decimals are reported
// to the caller, which must not create the token.
package tokenmeta

import (
	"context"
	"math/big"
	"time"

	"dexstats/internal/domain"

	"gitlab.com/nevasik7/alerting/logger"
	"golang.org/x/sync/errgroup"
)

// Fetcher live metadata lookups. ok=false means the value is not known
type Fetcher interface {
	Decimals(ctx context.Context, chainID uint64, token string) (int32, bool, error)
	Symbol(ctx context.Context, chainID uint64, token string) (string, bool, error)
	Name(ctx context.Context, chainID uint64, token string) (string, bool, error)
	TotalSupply(ctx context.Context, chainID uint64, token string) (*big.Int, bool, error)
}

type Resolver struct {
	log     logger.Logger
	fetcher Fetcher
	timeout time.Duration
}

func NewResolver(log logger.Logger, fetcher Fetcher, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{log: log, fetcher: fetcher, timeout: timeout}
}

// Resolve fetches the four fields concurrently. Never fails: unresolved decimals come
// back with HasDecimals=false
func (r *Resolver) Resolve(ctx context.Context, chainID uint64, token string, overrides map[string]domain.TokenMetadata) domain.TokenMetadata {
	meta := domain.TokenMetadata{
		Symbol:      domain.UnknownTokenValue,
		Name:        domain.UnknownTokenValue,
		TotalSupply: new(big.Int),
	}

	if o, ok := overrides[token]; ok {
		meta.Symbol, meta.Name = o.Symbol, o.Name
		meta.Decimals, meta.HasDecimals = o.Decimals, o.HasDecimals
		if o.TotalSupply != nil {
			meta.TotalSupply = new(big.Int).Set(o.TotalSupply)
			return meta
		}
		// supply is the one field an override may leave to the live lookup
		if r.fetcher != nil {
			tctx, cancel := context.WithTimeout(ctx, r.timeout)
			meta.TotalSupply = r.totalSupply(tctx, chainID, token)
			cancel()
		}
		return meta
	}

	if _, ok := domain.NormalizeAddress(token); !ok || r.fetcher == nil {
		return meta
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		d, ok, err := r.fetcher.Decimals(ctx, chainID, token)
		if err != nil {
			r.log.Warnf("decimals of %s on chain %d: %v", token, chainID, err)
			return nil
		}
		meta.Decimals, meta.HasDecimals = d, ok
		return nil
	})
	g.Go(func() error {
		if s, ok, err := r.fetcher.Symbol(ctx, chainID, token); err == nil && ok && !domain.IsNullEthValue(s) {
			meta.Symbol = s
		} else if err != nil {
			r.log.Debugf("symbol of %s on chain %d: %v", token, chainID, err)
		}
		return nil
	})
	g.Go(func() error {
		if n, ok, err := r.fetcher.Name(ctx, chainID, token); err == nil && ok && !domain.IsNullEthValue(n) {
			meta.Name = n
		} else if err != nil {
			r.log.Debugf("name of %s on chain %d: %v", token, chainID, err)
		}
		return nil
	})
	g.Go(func() error {
		meta.TotalSupply = r.totalSupply(ctx, chainID, token)
		return nil
	})
	_ = g.Wait()

	return meta
}

func (r *Resolver) totalSupply(ctx context.Context, chainID uint64, token string) *big.Int {
	v, ok, err := r.fetcher.TotalSupply(ctx, chainID, token)
	if err != nil {
		r.log.Debugf("total supply of %s on chain %d: %v", token, chainID, err)
	}
	if err != nil || !ok || v == nil {
		return new(big.Int)
	}
	return v
}
