package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Time-bucketed rollups. Day buckets carry Date (bucket start), hour buckets carry PeriodStartUnix

// Protocol-wide bucket, id = factoryId-bucketIndex
type UniswapDayData struct {
	ID                 string          `json:"id"`
	Date               int64           `json:"date"`
	VolumeETH          decimal.Decimal `json:"volume_eth"`
	VolumeUSD          decimal.Decimal `json:"volume_usd"`
	VolumeUSDUntracked decimal.Decimal `json:"volume_usd_untracked"`
	FeesUSD            decimal.Decimal `json:"fees_usd"`
	TxCount            *big.Int        `json:"tx_count"`
	TvlUSD             decimal.Decimal `json:"tvl_usd"`
}

type UniswapHourData struct {
	ID                 string          `json:"id"`
	PeriodStartUnix    int64           `json:"period_start_unix"`
	VolumeETH          decimal.Decimal `json:"volume_eth"`
	VolumeUSD          decimal.Decimal `json:"volume_usd"`
	VolumeUSDUntracked decimal.Decimal `json:"volume_usd_untracked"`
	FeesUSD            decimal.Decimal `json:"fees_usd"`
	TxCount            *big.Int        `json:"tx_count"`
	TvlUSD             decimal.Decimal `json:"tvl_usd"`
}

// OHLC fields shared by pool and token buckets
type Candle struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// NewCandle seeds open=high=low=close
func NewCandle(price decimal.Decimal) Candle {
	return Candle{Open: price, High: price, Low: price, Close: price}
}

// Observe returns the candle after seeing price: high only grows, low only shrinks, close follows
func (c Candle) Observe(price decimal.Decimal) Candle {
	if price.GreaterThan(c.High) {
		c.High = price
	}
	if price.LessThan(c.Low) {
		c.Low = price
	}
	c.Close = price
	return c
}

type PoolDayData struct {
	ID           string          `json:"id"`
	Date         int64           `json:"date"`
	Pool         string          `json:"pool"`
	Liquidity    *big.Int        `json:"liquidity"`
	SqrtPrice    *big.Int        `json:"sqrt_price"`
	Token0Price  decimal.Decimal `json:"token0_price"`
	Token1Price  decimal.Decimal `json:"token1_price"`
	Tick         OptTick         `json:"tick"`
	TvlUSD       decimal.Decimal `json:"tvl_usd"`
	VolumeToken0 decimal.Decimal `json:"volume_token0"`
	VolumeToken1 decimal.Decimal `json:"volume_token1"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	FeesUSD      decimal.Decimal `json:"fees_usd"`
	TxCount      *big.Int        `json:"tx_count"`
	Candle
}

type PoolHourData struct {
	ID              string          `json:"id"`
	PeriodStartUnix int64           `json:"period_start_unix"`
	Pool            string          `json:"pool"`
	Liquidity       *big.Int        `json:"liquidity"`
	SqrtPrice       *big.Int        `json:"sqrt_price"`
	Token0Price     decimal.Decimal `json:"token0_price"`
	Token1Price     decimal.Decimal `json:"token1_price"`
	Tick            OptTick         `json:"tick"`
	TvlUSD          decimal.Decimal `json:"tvl_usd"`
	VolumeToken0    decimal.Decimal `json:"volume_token0"`
	VolumeToken1    decimal.Decimal `json:"volume_token1"`
	VolumeUSD       decimal.Decimal `json:"volume_usd"`
	FeesUSD         decimal.Decimal `json:"fees_usd"`
	TxCount         *big.Int        `json:"tx_count"`
	Candle
}

type TokenDayData struct {
	ID                  string          `json:"id"`
	Date                int64           `json:"date"`
	Token               string          `json:"token"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untracked_volume_usd"`
	TotalValueLocked    decimal.Decimal `json:"total_value_locked"`
	TotalValueLockedUSD decimal.Decimal `json:"total_value_locked_usd"`
	PriceUSD            decimal.Decimal `json:"price_usd"`
	FeesUSD             decimal.Decimal `json:"fees_usd"`
	Candle
}

type TokenHourData struct {
	ID                  string          `json:"id"`
	PeriodStartUnix     int64           `json:"period_start_unix"`
	Token               string          `json:"token"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untracked_volume_usd"`
	TotalValueLocked    decimal.Decimal `json:"total_value_locked"`
	TotalValueLockedUSD decimal.Decimal `json:"total_value_locked_usd"`
	PriceUSD            decimal.Decimal `json:"price_usd"`
	FeesUSD             decimal.Decimal `json:"fees_usd"`
	Candle
}
