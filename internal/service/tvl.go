package service

import (
	"dexstats/internal/domain"

	"github.com/shopspring/decimal"
)

// amountUSD value of both legs at the current derived prices
func amountUSD(amount0 decimal.Decimal, t0 *domain.Token, amount1 decimal.Decimal, t1 *domain.Token, b *domain.Bundle) decimal.Decimal {
	return amount0.Mul(t0.PriceUSD(b)).Add(amount1.Mul(t1.PriceUSD(b)))
}

func refreshPoolTVL(p *domain.Pool, t0, t1 *domain.Token, b *domain.Bundle) {
	p.TotalValueLockedETH = p.TotalValueLockedToken0.Mul(t0.DerivedETH).
		Add(p.TotalValueLockedToken1.Mul(t1.DerivedETH))
	p.TotalValueLockedUSD = p.TotalValueLockedETH.Mul(b.EthPriceUSD)
}

func refreshTokenTVL(t *domain.Token, b *domain.Bundle) {
	t.TotalValueLockedUSD = t.TotalValueLocked.Mul(t.DerivedETH).Mul(b.EthPriceUSD)
}

// replacePoolTVL swaps the pool's previous native TVL for its current one in the factory total
func replacePoolTVL(f *domain.Factory, prevPoolETH decimal.Decimal, p *domain.Pool, b *domain.Bundle) {
	f.TotalValueLockedETH = f.TotalValueLockedETH.Sub(prevPoolETH).Add(p.TotalValueLockedETH)
	f.TotalValueLockedUSD = f.TotalValueLockedETH.Mul(b.EthPriceUSD)
}

func absDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d.Neg()
	}
	return d
}
