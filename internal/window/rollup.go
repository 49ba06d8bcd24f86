package window

import (
	"math/big"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
)

// Update* take the bucket as loaded (nil on first touch in the window) and return the
// next snapshot. The argument is never modified.

// UpdateUniswapDayData global buckets mirror the factory cumulative fields
func UpdateUniswapDayData(b *domain.UniswapDayData, f *domain.Factory, dayIndex int64) *domain.UniswapDayData {
	var out domain.UniswapDayData
	if b == nil {
		out = domain.UniswapDayData{
			ID:                 BucketID(f.ID, dayIndex),
			Date:               DayStart(dayIndex),
			VolumeETH:          mathutil.Zero,
			VolumeUSD:          mathutil.Zero,
			VolumeUSDUntracked: mathutil.Zero,
			FeesUSD:            mathutil.Zero,
		}
	} else {
		out = *b
	}

	out.TvlUSD = f.TotalValueLockedUSD
	out.TxCount = mathutil.CopyBig(f.TxCount)
	return &out
}

func UpdateUniswapHourData(b *domain.UniswapHourData, f *domain.Factory, hourIndex int64) *domain.UniswapHourData {
	var out domain.UniswapHourData
	if b == nil {
		out = domain.UniswapHourData{
			ID:                 BucketID(f.ID, hourIndex),
			PeriodStartUnix:    HourStart(hourIndex),
			VolumeETH:          mathutil.Zero,
			VolumeUSD:          mathutil.Zero,
			VolumeUSDUntracked: mathutil.Zero,
			FeesUSD:            mathutil.Zero,
		}
	} else {
		out = *b
	}

	out.TvlUSD = f.TotalValueLockedUSD
	out.TxCount = mathutil.CopyBig(f.TxCount)
	return &out
}

// UpdatePoolDayData OHLC over pool.Token0Price plus a snapshot of the pool state
func UpdatePoolDayData(b *domain.PoolDayData, p *domain.Pool, dayIndex int64) *domain.PoolDayData {
	var out domain.PoolDayData
	if b == nil {
		out = domain.PoolDayData{
			ID:           BucketID(p.ID, dayIndex),
			Date:         DayStart(dayIndex),
			Pool:         p.ID,
			VolumeToken0: mathutil.Zero,
			VolumeToken1: mathutil.Zero,
			VolumeUSD:    mathutil.Zero,
			FeesUSD:      mathutil.Zero,
			TxCount:      new(big.Int),
			Candle:       domain.NewCandle(p.Token0Price),
		}
	} else {
		out = *b
	}

	out.Candle = out.Candle.Observe(p.Token0Price)
	out.Liquidity = mathutil.CopyBig(p.Liquidity)
	out.SqrtPrice = mathutil.CopyBig(p.SqrtPrice)
	out.Token0Price = p.Token0Price
	out.Token1Price = p.Token1Price
	out.Tick = p.Tick
	out.TvlUSD = p.TotalValueLockedUSD
	out.TxCount = mathutil.Inc(out.TxCount)
	return &out
}

func UpdatePoolHourData(b *domain.PoolHourData, p *domain.Pool, hourIndex int64) *domain.PoolHourData {
	var out domain.PoolHourData
	if b == nil {
		out = domain.PoolHourData{
			ID:              BucketID(p.ID, hourIndex),
			PeriodStartUnix: HourStart(hourIndex),
			Pool:            p.ID,
			VolumeToken0:    mathutil.Zero,
			VolumeToken1:    mathutil.Zero,
			VolumeUSD:       mathutil.Zero,
			FeesUSD:         mathutil.Zero,
			TxCount:         new(big.Int),
			Candle:          domain.NewCandle(p.Token0Price),
		}
	} else {
		out = *b
	}

	out.Candle = out.Candle.Observe(p.Token0Price)
	out.Liquidity = mathutil.CopyBig(p.Liquidity)
	out.SqrtPrice = mathutil.CopyBig(p.SqrtPrice)
	out.Token0Price = p.Token0Price
	out.Token1Price = p.Token1Price
	out.Tick = p.Tick
	out.TvlUSD = p.TotalValueLockedUSD
	out.TxCount = mathutil.Inc(out.TxCount)
	return &out
}

// UpdateTokenDayData OHLC over the token USD price (derivedETH * ethPriceUSD)
func UpdateTokenDayData(b *domain.TokenDayData, t *domain.Token, bundle *domain.Bundle, dayIndex int64) *domain.TokenDayData {
	price := t.PriceUSD(bundle)

	var out domain.TokenDayData
	if b == nil {
		out = domain.TokenDayData{
			ID:                 BucketID(t.ID, dayIndex),
			Date:               DayStart(dayIndex),
			Token:              t.ID,
			Volume:             mathutil.Zero,
			VolumeUSD:          mathutil.Zero,
			UntrackedVolumeUSD: mathutil.Zero,
			FeesUSD:            mathutil.Zero,
			Candle:             domain.NewCandle(price),
		}
	} else {
		out = *b
	}

	out.Candle = out.Candle.Observe(price)
	out.PriceUSD = price
	out.TotalValueLocked = t.TotalValueLocked
	out.TotalValueLockedUSD = t.TotalValueLockedUSD
	return &out
}

func UpdateTokenHourData(b *domain.TokenHourData, t *domain.Token, bundle *domain.Bundle, hourIndex int64) *domain.TokenHourData {
	price := t.PriceUSD(bundle)

	var out domain.TokenHourData
	if b == nil {
		out = domain.TokenHourData{
			ID:                 BucketID(t.ID, hourIndex),
			PeriodStartUnix:    HourStart(hourIndex),
			Token:              t.ID,
			Volume:             mathutil.Zero,
			VolumeUSD:          mathutil.Zero,
			UntrackedVolumeUSD: mathutil.Zero,
			FeesUSD:            mathutil.Zero,
			Candle:             domain.NewCandle(price),
		}
	} else {
		out = *b
	}

	out.Candle = out.Candle.Observe(price)
	out.PriceUSD = price
	out.TotalValueLocked = t.TotalValueLocked
	out.TotalValueLockedUSD = t.TotalValueLockedUSD
	return &out
}
