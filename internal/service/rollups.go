package service

import (
	"context"
	"errors"

	"dexstats/internal/domain"
	"dexstats/internal/stores"
	"dexstats/internal/window"

	"golang.org/x/sync/errgroup"
)

// touchBuckets refreshes every bucket a pool event reaches: global day/hour, pool day/hour
// and day/hour of both tokens. vol is nil for events that carry no volume
func touchBuckets(ctx context.Context, s *state, sc *scope, vol *window.SwapVolume) error {
	ts := s.ev.BlockTimestamp
	day, hour := window.DayIndex(ts), window.HourIndex(ts)

	var (
		ud  *domain.UniswapDayData
		uh  *domain.UniswapHourData
		pd  *domain.PoolDayData
		ph  *domain.PoolHourData
		t0d *domain.TokenDayData
		t1d *domain.TokenDayData
		t0h *domain.TokenHourData
		t1h *domain.TokenHourData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ud, _, err = stores.Load[domain.UniswapDayData](gctx, s.tx, domain.EntityUniswapDayData, window.BucketID(sc.factory.ID, day))
		return err
	})
	g.Go(func() (err error) {
		uh, _, err = stores.Load[domain.UniswapHourData](gctx, s.tx, domain.EntityUniswapHourData, window.BucketID(sc.factory.ID, hour))
		return err
	})
	g.Go(func() (err error) {
		pd, ph, err = loadPoolBuckets(gctx, s, sc.pool.ID, day, hour)
		return err
	})
	g.Go(func() (err error) {
		t0d, _, err = stores.Load[domain.TokenDayData](gctx, s.tx, domain.EntityTokenDayData, window.BucketID(sc.token0.ID, day))
		return err
	})
	g.Go(func() (err error) {
		t1d, _, err = stores.Load[domain.TokenDayData](gctx, s.tx, domain.EntityTokenDayData, window.BucketID(sc.token1.ID, day))
		return err
	})
	g.Go(func() (err error) {
		t0h, _, err = stores.Load[domain.TokenHourData](gctx, s.tx, domain.EntityTokenHourData, window.BucketID(sc.token0.ID, hour))
		return err
	})
	g.Go(func() (err error) {
		t1h, _, err = stores.Load[domain.TokenHourData](gctx, s.tx, domain.EntityTokenHourData, window.BucketID(sc.token1.ID, hour))
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ud = window.UpdateUniswapDayData(ud, sc.factory, day)
	uh = window.UpdateUniswapHourData(uh, sc.factory, hour)
	pd = window.UpdatePoolDayData(pd, sc.pool, day)
	ph = window.UpdatePoolHourData(ph, sc.pool, hour)
	t0d = window.UpdateTokenDayData(t0d, sc.token0, sc.bundle, day)
	t1d = window.UpdateTokenDayData(t1d, sc.token1, sc.bundle, day)
	t0h = window.UpdateTokenHourData(t0h, sc.token0, sc.bundle, hour)
	t1h = window.UpdateTokenHourData(t1h, sc.token1, sc.bundle, hour)

	if vol != nil {
		vol.AddUniswapDay(ud)
		vol.AddUniswapHour(uh)
		vol.AddPoolDay(pd)
		vol.AddPoolHour(ph)
		vol.AddTokenDay(t0d, vol.Amount0)
		vol.AddTokenDay(t1d, vol.Amount1)
		vol.AddTokenHour(t0h, vol.Amount0)
		vol.AddTokenHour(t1h, vol.Amount1)
	}

	return errors.Join(
		stores.Put(s.tx, domain.EntityUniswapDayData, ud.ID, ud),
		stores.Put(s.tx, domain.EntityUniswapHourData, uh.ID, uh),
		stores.Put(s.tx, domain.EntityPoolDayData, pd.ID, pd),
		stores.Put(s.tx, domain.EntityPoolHourData, ph.ID, ph),
		stores.Put(s.tx, domain.EntityTokenDayData, t0d.ID, t0d),
		stores.Put(s.tx, domain.EntityTokenDayData, t1d.ID, t1d),
		stores.Put(s.tx, domain.EntityTokenHourData, t0h.ID, t0h),
		stores.Put(s.tx, domain.EntityTokenHourData, t1h.ID, t1h),
	)
}

// touchPoolBuckets pool day/hour only, for price-only events
func touchPoolBuckets(ctx context.Context, s *state, pool *domain.Pool) error {
	ts := s.ev.BlockTimestamp
	day, hour := window.DayIndex(ts), window.HourIndex(ts)

	pd, ph, err := loadPoolBuckets(ctx, s, pool.ID, day, hour)
	if err != nil {
		return err
	}

	pd = window.UpdatePoolDayData(pd, pool, day)
	ph = window.UpdatePoolHourData(ph, pool, hour)

	return errors.Join(
		stores.Put(s.tx, domain.EntityPoolDayData, pd.ID, pd),
		stores.Put(s.tx, domain.EntityPoolHourData, ph.ID, ph),
	)
}

func loadPoolBuckets(ctx context.Context, s *state, poolID string, day, hour int64) (*domain.PoolDayData, *domain.PoolHourData, error) {
	pd, _, err := stores.Load[domain.PoolDayData](ctx, s.tx, domain.EntityPoolDayData, window.BucketID(poolID, day))
	if err != nil {
		return nil, nil, err
	}
	ph, _, err := stores.Load[domain.PoolHourData](ctx, s.tx, domain.EntityPoolHourData, window.BucketID(poolID, hour))
	if err != nil {
		return nil, nil, err
	}
	return pd, ph, nil
}
