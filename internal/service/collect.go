package service

import (
	"context"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
	"dexstats/internal/pricing"
	"dexstats/internal/stores"
)

func (p *Processor) collect(ctx context.Context, s *state, ev domain.CollectParams) error {
	sc, err := loadScope(ctx, s, s.ev.SrcAddress, true)
	if err != nil {
		return err
	}
	tx, err := getOrSetTransaction(ctx, s)
	if err != nil {
		return err
	}
	pool, t0, t1, bundle := sc.pool, sc.token0, sc.token1, sc.bundle

	amount0 := mathutil.ConvertTokenToDecimal(ev.Amount0, t0.Decimals)
	amount1 := mathutil.ConvertTokenToDecimal(ev.Amount1, t1.Decimals)
	trackedUSD := pricing.TrackedAmountUSD(amount0, t0, amount1, t1, s.chain.Whitelist, bundle)

	prevPoolETH := pool.TotalValueLockedETH

	sc.factory.TxCount = mathutil.Inc(sc.factory.TxCount)
	pool.TxCount = mathutil.Inc(pool.TxCount)
	t0.TxCount = mathutil.Inc(t0.TxCount)
	t1.TxCount = mathutil.Inc(t1.TxCount)

	t0.TotalValueLocked = t0.TotalValueLocked.Sub(amount0)
	t1.TotalValueLocked = t1.TotalValueLocked.Sub(amount1)
	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Sub(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Sub(amount1)

	pool.CollectedFeesToken0 = pool.CollectedFeesToken0.Add(amount0)
	pool.CollectedFeesToken1 = pool.CollectedFeesToken1.Add(amount1)
	pool.CollectedFeesUSD = pool.CollectedFeesUSD.Add(trackedUSD)

	refreshPoolTVL(pool, t0, t1, bundle)
	refreshTokenTVL(t0, bundle)
	refreshTokenTVL(t1, bundle)
	replacePoolTVL(sc.factory, prevPoolETH, pool, bundle)

	rec := &domain.Collect{
		ID:          domain.MakeRecordID(tx.ID, s.ev.LogIndex),
		Transaction: tx.ID,
		Timestamp:   s.ev.BlockTimestamp,
		Pool:        pool.ID,
		Owner:       ev.Owner,
		Amount0:     amount0,
		Amount1:     amount1,
		AmountUSD:   trackedUSD,
		TickLower:   ev.TickLower,
		TickUpper:   ev.TickUpper,
		LogIndex:    s.ev.LogIndex,
	}

	if err = stores.Put(s.tx, domain.EntityCollect, rec.ID, rec); err != nil {
		return err
	}
	if err = putScope(s, sc); err != nil {
		return err
	}
	if err = touchBuckets(ctx, s, sc, nil); err != nil {
		return err
	}

	s.res.Collect = rec
	s.res.Pool = pool
	s.res.Tokens = sc.tokens()
	return nil
}
