package window

import (
	"dexstats/internal/domain"

	"github.com/shopspring/decimal"
)

// SwapVolume deltas one swap adds to every bucket it touches. Sums only grow by
// these deltas, they are never recomputed
type SwapVolume struct {
	Amount0      decimal.Decimal // |amount0|
	Amount1      decimal.Decimal // |amount1|
	TrackedETH   decimal.Decimal
	TrackedUSD   decimal.Decimal
	UntrackedUSD decimal.Decimal
	FeesUSD      decimal.Decimal
}

func (v SwapVolume) AddUniswapDay(b *domain.UniswapDayData) {
	b.VolumeETH = b.VolumeETH.Add(v.TrackedETH)
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.VolumeUSDUntracked = b.VolumeUSDUntracked.Add(v.UntrackedUSD)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}

func (v SwapVolume) AddUniswapHour(b *domain.UniswapHourData) {
	b.VolumeETH = b.VolumeETH.Add(v.TrackedETH)
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.VolumeUSDUntracked = b.VolumeUSDUntracked.Add(v.UntrackedUSD)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}

func (v SwapVolume) AddPoolDay(b *domain.PoolDayData) {
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.VolumeToken0 = b.VolumeToken0.Add(v.Amount0)
	b.VolumeToken1 = b.VolumeToken1.Add(v.Amount1)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}

func (v SwapVolume) AddPoolHour(b *domain.PoolHourData) {
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.VolumeToken0 = b.VolumeToken0.Add(v.Amount0)
	b.VolumeToken1 = b.VolumeToken1.Add(v.Amount1)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}

// AddTokenDay amount is the token's own leg
func (v SwapVolume) AddTokenDay(b *domain.TokenDayData, amount decimal.Decimal) {
	b.Volume = b.Volume.Add(amount)
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.UntrackedVolumeUSD = b.UntrackedVolumeUSD.Add(v.UntrackedUSD)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}

func (v SwapVolume) AddTokenHour(b *domain.TokenHourData, amount decimal.Decimal) {
	b.Volume = b.Volume.Add(amount)
	b.VolumeUSD = b.VolumeUSD.Add(v.TrackedUSD)
	b.UntrackedVolumeUSD = b.UntrackedVolumeUSD.Add(v.UntrackedUSD)
	b.FeesUSD = b.FeesUSD.Add(v.FeesUSD)
}
