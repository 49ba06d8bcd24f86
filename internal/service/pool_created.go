package service

import (
	"context"
	"fmt"
	"math/big"
	"slices"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
	"dexstats/internal/stores"

	"golang.org/x/sync/errgroup"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

func (p *Processor) poolCreated(ctx context.Context, s *state, ev domain.PoolCreatedParams) error {
	if !s.chain.Indexed(ev.Pool) {
		s.skip("pool not indexed")
		return nil
	}
	if _, err := mathutil.FeeTierToTickSpacing(ev.Fee); err != nil {
		return fmt.Errorf("pool %s: %w", ev.Pool, err)
	}

	var (
		factory   *domain.Factory
		bundle    *domain.Bundle
		newBundle bool
		token0    *domain.Token
		token1    *domain.Token
	)

	// metadata lookups of both tokens run alongside the store reads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, ok, err := stores.Load[domain.Factory](gctx, s.tx, domain.EntityFactory, s.chain.Factory)
		if err != nil {
			return err
		}
		if !ok {
			f = newFactory(s.chain.Factory)
		}
		factory = f
		return nil
	})
	g.Go(func() error {
		b, ok, err := stores.Load[domain.Bundle](gctx, s.tx, domain.EntityBundle, domain.BundleID(s.chain.ID))
		if err != nil {
			return err
		}
		if !ok {
			b, newBundle = &domain.Bundle{ID: domain.BundleID(s.chain.ID)}, true
		}
		bundle = b
		return nil
	})
	g.Go(func() (err error) {
		token0, err = p.getOrCreateToken(gctx, s, ev.Token0)
		return err
	})
	g.Go(func() (err error) {
		token1, err = p.getOrCreateToken(gctx, s, ev.Token1)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	factory.PoolCount = mathutil.Inc(factory.PoolCount)

	pool := newPool(ev, s.ev)

	if s.chain.Whitelist.Has(token0.ID) && !slices.Contains(token1.WhitelistPools, pool.ID) {
		token1.WhitelistPools = append(token1.WhitelistPools, pool.ID)
	}
	if s.chain.Whitelist.Has(token1.ID) && !slices.Contains(token0.WhitelistPools, pool.ID) {
		token0.WhitelistPools = append(token0.WhitelistPools, pool.ID)
	}
	token0.PoolCount = mathutil.Inc(token0.PoolCount)
	token1.PoolCount = mathutil.Inc(token1.PoolCount)

	if newBundle {
		if err := stores.Put(s.tx, domain.EntityBundle, bundle.ID, bundle); err != nil {
			return err
		}
	}
	for _, err := range []error{
		stores.Put(s.tx, domain.EntityFactory, factory.ID, factory),
		stores.Put(s.tx, domain.EntityToken, token0.ID, token0),
		stores.Put(s.tx, domain.EntityToken, token1.ID, token1),
		stores.Put(s.tx, domain.EntityPool, pool.ID, pool),
	} {
		if err != nil {
			return err
		}
	}

	s.res.Pool = pool
	s.res.Tokens = []*domain.Token{token0, token1}
	s.res.Bundle = bundle
	return nil
}

// getOrCreateToken existing snapshot, or a fresh one from resolved metadata.
// No decimals means no token
func (p *Processor) getOrCreateToken(ctx context.Context, s *state, id string) (*domain.Token, error) {
	t, ok, err := stores.Load[domain.Token](ctx, s.tx, domain.EntityToken, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}

	meta := p.resolver.Resolve(ctx, s.chain.ID, id, s.chain.Overrides)
	if !meta.HasDecimals {
		return nil, fmt.Errorf("%w: token %s on chain %d", ErrDecimalsUnresolved, id, s.chain.ID)
	}
	return newToken(id, meta), nil
}

func newFactory(id string) *domain.Factory {
	return &domain.Factory{
		ID:        id,
		PoolCount: new(big.Int),
		TxCount:   new(big.Int),
		Owner:     zeroAddress,
	}
}

func newToken(id string, meta domain.TokenMetadata) *domain.Token {
	return &domain.Token{
		ID:             id,
		Symbol:         meta.Symbol,
		Name:           meta.Name,
		Decimals:       meta.Decimals,
		TotalSupply:    mathutil.CopyBig(meta.TotalSupply),
		TxCount:        new(big.Int),
		PoolCount:      new(big.Int),
		WhitelistPools: []string{},
	}
}

// newPool every cumulative field zero, tick unset until Initialize
func newPool(p domain.PoolCreatedParams, ev *domain.Event) *domain.Pool {
	return &domain.Pool{
		ID:                     p.Pool,
		Token0:                 p.Token0,
		Token1:                 p.Token1,
		FeeTier:                mathutil.CopyBig(p.Fee),
		CreatedAtTimestamp:     ev.BlockTimestamp,
		CreatedAtBlockNumber:   ev.BlockNumber,
		LiquidityProviderCount: new(big.Int),
		TxCount:                new(big.Int),
		Liquidity:              new(big.Int),
		SqrtPrice:              new(big.Int),
		ObservationIndex:       new(big.Int),
	}
}
