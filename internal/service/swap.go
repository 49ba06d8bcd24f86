package service

import (
	"context"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
	"dexstats/internal/pricing"
	"dexstats/internal/stores"
	"dexstats/internal/window"

	"github.com/shopspring/decimal"
)

func (p *Processor) swap(ctx context.Context, s *state, ev domain.SwapParams) error {
	if s.chain.SkipSwap(s.ev.SrcAddress) {
		s.skip("swap denylist")
		return nil
	}

	sc, err := loadScope(ctx, s, s.ev.SrcAddress, true)
	if err != nil {
		return err
	}
	pool, t0, t1, bundle, factory := sc.pool, sc.token0, sc.token1, sc.bundle, sc.factory

	// signed from the pool's side, the abs legs are volume
	amount0 := mathutil.ConvertTokenToDecimal(ev.Amount0, t0.Decimals)
	amount1 := mathutil.ConvertTokenToDecimal(ev.Amount1, t1.Decimals)
	amount0Abs, amount1Abs := absDecimal(amount0), absDecimal(amount1)

	amount0USD := amount0Abs.Mul(t0.DerivedETH).Mul(bundle.EthPriceUSD)
	amount1USD := amount1Abs.Mul(t1.DerivedETH).Mul(bundle.EthPriceUSD)

	// both legs count toward TrackedAmountUSD, one side of the trade is the volume
	trackedUSD := pricing.TrackedAmountUSD(amount0Abs, t0, amount1Abs, t1, s.chain.Whitelist, bundle).Mul(mathutil.Half)
	trackedETH := mathutil.SafeDiv(trackedUSD, bundle.EthPriceUSD)
	untrackedUSD := amount0USD.Add(amount1USD).Mul(mathutil.Half)

	feeRate := mathutil.BigToDecimal(pool.FeeTier).Shift(-6)
	feesETH := trackedETH.Mul(feeRate)
	feesUSD := trackedUSD.Mul(feeRate)

	prevPoolETH := pool.TotalValueLockedETH

	factory.TxCount = mathutil.Inc(factory.TxCount)
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedETH)
	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedUSD)
	factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(untrackedUSD)
	factory.TotalFeesETH = factory.TotalFeesETH.Add(feesETH)
	factory.TotalFeesUSD = factory.TotalFeesUSD.Add(feesUSD)

	pool.TxCount = mathutil.Inc(pool.TxCount)
	pool.VolumeToken0 = pool.VolumeToken0.Add(amount0Abs)
	pool.VolumeToken1 = pool.VolumeToken1.Add(amount1Abs)
	pool.VolumeUSD = pool.VolumeUSD.Add(trackedUSD)
	pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(untrackedUSD)
	pool.FeesUSD = pool.FeesUSD.Add(feesUSD)
	pool.Liquidity = mathutil.CopyBig(ev.Liquidity)
	pool.Tick = domain.SomeTick(ev.Tick)
	pool.SqrtPrice = mathutil.CopyBig(ev.SqrtPriceX96)
	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)

	for _, leg := range []struct {
		token       *domain.Token
		signed, abs decimal.Decimal
	}{
		{t0, amount0, amount0Abs},
		{t1, amount1, amount1Abs},
	} {
		t := leg.token
		t.Volume = t.Volume.Add(leg.abs)
		t.TotalValueLocked = t.TotalValueLocked.Add(leg.signed)
		t.VolumeUSD = t.VolumeUSD.Add(trackedUSD)
		t.UntrackedVolumeUSD = t.UntrackedVolumeUSD.Add(untrackedUSD)
		t.FeesUSD = t.FeesUSD.Add(feesUSD)
		t.TxCount = mathutil.Inc(t.TxCount)
	}

	pool.Token0Price, pool.Token1Price = mathutil.SqrtPriceX96ToTokenPrices(pool.SqrtPrice, t0.Decimals, t1.Decimals)

	// pricing reads the pool back from the overlay, it may be the reference pool
	if err = stores.Put(s.tx, domain.EntityPool, pool.ID, pool); err != nil {
		return err
	}
	if err = refreshPrices(ctx, s, sc); err != nil {
		return err
	}

	refreshPoolTVL(pool, t0, t1, bundle)
	replacePoolTVL(factory, prevPoolETH, pool, bundle)
	refreshTokenTVL(t0, bundle)
	refreshTokenTVL(t1, bundle)

	tx, err := getOrSetTransaction(ctx, s)
	if err != nil {
		return err
	}

	rec := &domain.Swap{
		ID:           domain.MakeRecordID(tx.ID, s.ev.LogIndex),
		Transaction:  tx.ID,
		Timestamp:    tx.Timestamp,
		Pool:         pool.ID,
		Token0:       pool.Token0,
		Token1:       pool.Token1,
		Sender:       ev.Sender,
		Recipient:    ev.Recipient,
		Origin:       s.ev.TransactionFrom,
		Amount0:      amount0,
		Amount1:      amount1,
		AmountUSD:    trackedUSD,
		SqrtPriceX96: mathutil.CopyBig(ev.SqrtPriceX96),
		Tick:         ev.Tick,
		LogIndex:     s.ev.LogIndex,
	}

	if err = stores.Put(s.tx, domain.EntitySwap, rec.ID, rec); err != nil {
		return err
	}
	if err = stores.Put(s.tx, domain.EntityBundle, bundle.ID, bundle); err != nil {
		return err
	}
	if err = putScope(s, sc); err != nil {
		return err
	}

	vol := window.SwapVolume{
		Amount0:      amount0Abs,
		Amount1:      amount1Abs,
		TrackedETH:   trackedETH,
		TrackedUSD:   trackedUSD,
		UntrackedUSD: untrackedUSD,
		FeesUSD:      feesUSD,
	}
	if err = touchBuckets(ctx, s, sc, &vol); err != nil {
		return err
	}

	s.res.Swap = rec
	s.res.Pool = pool
	s.res.Tokens = sc.tokens()
	s.res.Bundle = bundle
	return nil
}
