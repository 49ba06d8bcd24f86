package service

import (
	"context"
	"fmt"

	"dexstats/internal/domain"
	"dexstats/internal/stores"

	"golang.org/x/sync/errgroup"
)

// view pricing graph over the event overlay, sees writes made earlier in the same event
type view struct {
	tx *stores.Tx
}

func (v view) Pool(ctx context.Context, id string) (*domain.Pool, bool, error) {
	return stores.Load[domain.Pool](ctx, v.tx, domain.EntityPool, id)
}

func (v view) Token(ctx context.Context, id string) (*domain.Token, bool, error) {
	return stores.Load[domain.Token](ctx, v.tx, domain.EntityToken, id)
}

func mustLoad[T any](ctx context.Context, tx *stores.Tx, kind domain.EntityKind, id string) (*T, error) {
	v, ok, err := stores.Load[T](ctx, tx, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s on chain %d", ErrMissingEntity, kind, id, tx.ChainID())
	}
	return v, nil
}

// scope snapshots every pool event works on
type scope struct {
	bundle  *domain.Bundle
	factory *domain.Factory
	pool    *domain.Pool
	token0  *domain.Token
	token1  *domain.Token
}

func (sc *scope) tokens() []*domain.Token {
	return []*domain.Token{sc.token0, sc.token1}
}

// loadScope bundle, pool and factory in parallel, then both tokens of the pool in parallel.
// All five are required
func loadScope(ctx context.Context, s *state, poolID string, withFactory bool) (*scope, error) {
	var sc scope

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.bundle, err = mustLoad[domain.Bundle](gctx, s.tx, domain.EntityBundle, domain.BundleID(s.chain.ID))
		return err
	})
	g.Go(func() (err error) {
		sc.pool, err = mustLoad[domain.Pool](gctx, s.tx, domain.EntityPool, poolID)
		return err
	})
	if withFactory {
		g.Go(func() (err error) {
			sc.factory, err = mustLoad[domain.Factory](gctx, s.tx, domain.EntityFactory, s.chain.Factory)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.token0, err = mustLoad[domain.Token](gctx, s.tx, domain.EntityToken, sc.pool.Token0)
		return err
	})
	g.Go(func() (err error) {
		sc.token1, err = mustLoad[domain.Token](gctx, s.tx, domain.EntityToken, sc.pool.Token1)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// loadTicks both boundaries of a position; nil when absent
func loadTicks(ctx context.Context, s *state, poolID string, lower, upper int64) (*domain.Tick, *domain.Tick, error) {
	var lo, up *domain.Tick

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lo, _, err = stores.Load[domain.Tick](gctx, s.tx, domain.EntityTick, domain.TickID(poolID, lower))
		return err
	})
	g.Go(func() (err error) {
		up, _, err = stores.Load[domain.Tick](gctx, s.tx, domain.EntityTick, domain.TickID(poolID, upper))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lo, up, nil
}
