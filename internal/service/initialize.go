package service

import (
	"context"
	"errors"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
	"dexstats/internal/pricing"
	"dexstats/internal/stores"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func (p *Processor) initialize(ctx context.Context, s *state, ev domain.InitializeParams) error {
	sc, err := loadScope(ctx, s, s.ev.SrcAddress, false)
	if err != nil {
		return err
	}
	pool := sc.pool

	pool.SqrtPrice = mathutil.CopyBig(ev.SqrtPriceX96)
	pool.Tick = domain.SomeTick(ev.Tick)
	pool.Token0Price, pool.Token1Price = mathutil.SqrtPriceX96ToTokenPrices(pool.SqrtPrice, sc.token0.Decimals, sc.token1.Decimals)

	// the reference pool may be this one: write first, then price
	if err = stores.Put(s.tx, domain.EntityPool, pool.ID, pool); err != nil {
		return err
	}
	if err = refreshPrices(ctx, s, sc); err != nil {
		return err
	}

	if err = errors.Join(
		stores.Put(s.tx, domain.EntityBundle, sc.bundle.ID, sc.bundle),
		stores.Put(s.tx, domain.EntityToken, sc.token0.ID, sc.token0),
		stores.Put(s.tx, domain.EntityToken, sc.token1.ID, sc.token1),
	); err != nil {
		return err
	}
	if err = touchPoolBuckets(ctx, s, pool); err != nil {
		return err
	}

	s.res.Pool = pool
	s.res.Tokens = sc.tokens()
	s.res.Bundle = sc.bundle
	return nil
}

// refreshPrices bundle from the reference pool as currently in the overlay, then the
// derived native price of both tokens against that bundle
func refreshPrices(ctx context.Context, s *state, sc *scope) error {
	g := s.graph()

	ref, _, err := g.Pool(ctx, s.chain.ReferencePool)
	if err != nil {
		return err
	}
	sc.bundle.EthPriceUSD = pricing.NativePriceInUSD(s.chain.StablecoinIsToken0, ref)

	var d0, d1 decimal.Decimal
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		d0, err = pricing.DerivedNativePrice(gctx, sc.token0, s.chain.Pricing, sc.bundle, g)
		return err
	})
	eg.Go(func() (err error) {
		d1, err = pricing.DerivedNativePrice(gctx, sc.token1, s.chain.Pricing, sc.bundle, g)
		return err
	})
	if err = eg.Wait(); err != nil {
		return err
	}

	sc.token0.DerivedETH = d0
	sc.token1.DerivedETH = d1
	return nil
}
