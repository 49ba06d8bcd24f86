package service

import (
	"context"
	"errors"
	"math/big"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
	"dexstats/internal/stores"

	"github.com/shopspring/decimal"
)

func (p *Processor) mint(ctx context.Context, s *state, ev domain.MintParams) error {
	sc, err := loadScope(ctx, s, s.ev.SrcAddress, true)
	if err != nil {
		return err
	}
	lower, upper, err := loadTicks(ctx, s, sc.pool.ID, ev.TickLower, ev.TickUpper)
	if err != nil {
		return err
	}
	tx, err := getOrSetTransaction(ctx, s)
	if err != nil {
		return err
	}

	amount0 := mathutil.ConvertTokenToDecimal(ev.Amount0, sc.token0.Decimals)
	amount1 := mathutil.ConvertTokenToDecimal(ev.Amount1, sc.token1.Decimals)
	usd := amountUSD(amount0, sc.token0, amount1, sc.token1, sc.bundle)

	applyPosition(sc, ev.TickLower, ev.TickUpper, ev.Amount, amount0, amount1)

	if lower == nil {
		lower = newTick(sc.pool.ID, ev.TickLower, s.ev)
	}
	if upper == nil {
		upper = newTick(sc.pool.ID, ev.TickUpper, s.ev)
	}
	lower.LiquidityGross = mathutil.AddBig(lower.LiquidityGross, ev.Amount)
	lower.LiquidityNet = mathutil.AddBig(lower.LiquidityNet, ev.Amount)
	upper.LiquidityGross = mathutil.AddBig(upper.LiquidityGross, ev.Amount)
	upper.LiquidityNet = mathutil.SubBig(upper.LiquidityNet, ev.Amount)

	rec := &domain.Mint{
		ID:          domain.MakeRecordID(tx.ID, s.ev.LogIndex),
		Transaction: tx.ID,
		Timestamp:   tx.Timestamp,
		Pool:        sc.pool.ID,
		Token0:      sc.pool.Token0,
		Token1:      sc.pool.Token1,
		Owner:       ev.Owner,
		Sender:      ev.Sender,
		Origin:      s.ev.TransactionFrom,
		Amount:      mathutil.CopyBig(ev.Amount),
		Amount0:     amount0,
		Amount1:     amount1,
		AmountUSD:   usd,
		TickLower:   ev.TickLower,
		TickUpper:   ev.TickUpper,
		LogIndex:    s.ev.LogIndex,
	}

	if err = errors.Join(
		stores.Put(s.tx, domain.EntityTick, lower.ID, lower),
		stores.Put(s.tx, domain.EntityTick, upper.ID, upper),
		stores.Put(s.tx, domain.EntityMint, rec.ID, rec),
	); err != nil {
		return err
	}
	if err = putScope(s, sc); err != nil {
		return err
	}
	if err = touchBuckets(ctx, s, sc, nil); err != nil {
		return err
	}

	s.res.Mint = rec
	s.res.Pool = sc.pool
	s.res.Tokens = sc.tokens()
	return nil
}

func (p *Processor) burn(ctx context.Context, s *state, ev domain.BurnParams) error {
	sc, err := loadScope(ctx, s, s.ev.SrcAddress, true)
	if err != nil {
		return err
	}
	lower, upper, err := loadTicks(ctx, s, sc.pool.ID, ev.TickLower, ev.TickUpper)
	if err != nil {
		return err
	}
	tx, err := getOrSetTransaction(ctx, s)
	if err != nil {
		return err
	}

	amount0 := mathutil.ConvertTokenToDecimal(ev.Amount0, sc.token0.Decimals)
	amount1 := mathutil.ConvertTokenToDecimal(ev.Amount1, sc.token1.Decimals)
	usd := amountUSD(amount0, sc.token0, amount1, sc.token1, sc.bundle)

	applyPosition(sc, ev.TickLower, ev.TickUpper, new(big.Int).Neg(orZeroBig(ev.Amount)), amount0.Neg(), amount1.Neg())

	rec := &domain.Burn{
		ID:          domain.MakeRecordID(tx.ID, s.ev.LogIndex),
		Transaction: tx.ID,
		Timestamp:   tx.Timestamp,
		Pool:        sc.pool.ID,
		Token0:      sc.pool.Token0,
		Token1:      sc.pool.Token1,
		Owner:       ev.Owner,
		Origin:      s.ev.TransactionFrom,
		Amount:      mathutil.CopyBig(ev.Amount),
		Amount0:     amount0,
		Amount1:     amount1,
		AmountUSD:   usd,
		TickLower:   ev.TickLower,
		TickUpper:   ev.TickUpper,
		LogIndex:    s.ev.LogIndex,
	}
	if err = stores.Put(s.tx, domain.EntityBurn, rec.ID, rec); err != nil {
		return err
	}

	// tick bookkeeping needs both boundaries; a burn against unknown ticks
	// still moves amounts and TVL
	if lower != nil && upper != nil {
		lower.LiquidityGross = mathutil.SubBig(lower.LiquidityGross, ev.Amount)
		lower.LiquidityNet = mathutil.SubBig(lower.LiquidityNet, ev.Amount)
		upper.LiquidityGross = mathutil.SubBig(upper.LiquidityGross, ev.Amount)
		upper.LiquidityNet = mathutil.AddBig(upper.LiquidityNet, ev.Amount)

		if err = errors.Join(
			stores.Put(s.tx, domain.EntityTick, lower.ID, lower),
			stores.Put(s.tx, domain.EntityTick, upper.ID, upper),
		); err != nil {
			return err
		}
	} else {
		p.log.Debugf("Burn %s without tick records %d/%d, tick liquidity left as is", rec.ID, ev.TickLower, ev.TickUpper)
	}

	if err = putScope(s, sc); err != nil {
		return err
	}
	if err = touchBuckets(ctx, s, sc, nil); err != nil {
		return err
	}

	s.res.Burn = rec
	s.res.Pool = sc.pool
	s.res.Tokens = sc.tokens()
	return nil
}

// applyPosition counters and TVL of a liquidity change; delta and amounts are signed
// (negative for a burn). Active liquidity moves only while the range holds the current tick
func applyPosition(sc *scope, tickLower, tickUpper int64, delta *big.Int, amount0, amount1 decimal.Decimal) {
	pool, t0, t1 := sc.pool, sc.token0, sc.token1
	prevPoolETH := pool.TotalValueLockedETH

	sc.factory.TxCount = mathutil.Inc(sc.factory.TxCount)
	pool.TxCount = mathutil.Inc(pool.TxCount)
	t0.TxCount = mathutil.Inc(t0.TxCount)
	t1.TxCount = mathutil.Inc(t1.TxCount)

	if pool.InRange(tickLower, tickUpper) {
		pool.Liquidity = mathutil.AddBig(pool.Liquidity, delta)
	}

	t0.TotalValueLocked = t0.TotalValueLocked.Add(amount0)
	t1.TotalValueLocked = t1.TotalValueLocked.Add(amount1)
	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)

	refreshPoolTVL(pool, t0, t1, sc.bundle)
	refreshTokenTVL(t0, sc.bundle)
	refreshTokenTVL(t1, sc.bundle)
	replacePoolTVL(sc.factory, prevPoolETH, pool, sc.bundle)
}

// putScope factory, pool and both tokens
func putScope(s *state, sc *scope) error {
	return errors.Join(
		stores.Put(s.tx, domain.EntityFactory, sc.factory.ID, sc.factory),
		stores.Put(s.tx, domain.EntityPool, sc.pool.ID, sc.pool),
		stores.Put(s.tx, domain.EntityToken, sc.token0.ID, sc.token0),
		stores.Put(s.tx, domain.EntityToken, sc.token1.ID, sc.token1),
	)
}

// newTick empty boundary, prices fixed by the tick index
func newTick(poolID string, idx int64, ev *domain.Event) *domain.Tick {
	price0 := mathutil.PriceAtTick(idx)
	return &domain.Tick{
		ID:                   domain.TickID(poolID, idx),
		PoolAddress:          poolID,
		TickIdx:              idx,
		CreatedAtTimestamp:   ev.BlockTimestamp,
		CreatedAtBlockNumber: ev.BlockNumber,
		LiquidityGross:       new(big.Int),
		LiquidityNet:         new(big.Int),
		Price0:               price0,
		Price1:               mathutil.SafeDiv(mathutil.One, price0),
	}
}

func orZeroBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
