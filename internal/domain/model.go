package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Protocol-wide aggregate, one per chain deployment
type Factory struct {
	ID                           string          `json:"id"` // factory address
	PoolCount                    *big.Int        `json:"pool_count"`
	TxCount                      *big.Int        `json:"tx_count"`
	TotalVolumeETH               decimal.Decimal `json:"total_volume_eth"`
	TotalVolumeUSD               decimal.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	TotalFeesETH                 decimal.Decimal `json:"total_fees_eth"`
	TotalFeesUSD                 decimal.Decimal `json:"total_fees_usd"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedETHUntracked decimal.Decimal `json:"total_value_locked_eth_untracked"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	Owner                        string          `json:"owner"`
}

// Native asset USD price reference, id = chain id
type Bundle struct {
	ID          string          `json:"id"`
	EthPriceUSD decimal.Decimal `json:"eth_price_usd"`
}

type Pool struct {
	ID                           string          `json:"id"`
	Token0                       string          `json:"token0"`
	Token1                       string          `json:"token1"`
	FeeTier                      *big.Int        `json:"fee_tier"`
	CreatedAtTimestamp           int64           `json:"created_at_timestamp"`
	CreatedAtBlockNumber         uint64          `json:"created_at_block_number"`
	LiquidityProviderCount       *big.Int        `json:"liquidity_provider_count"`
	TxCount                      *big.Int        `json:"tx_count"`
	Liquidity                    *big.Int        `json:"liquidity"`
	SqrtPrice                    *big.Int        `json:"sqrt_price"`
	Tick                         OptTick         `json:"tick"`
	Token0Price                  decimal.Decimal `json:"token0_price"`
	Token1Price                  decimal.Decimal `json:"token1_price"`
	ObservationIndex             *big.Int        `json:"observation_index"`
	TotalValueLockedToken0       decimal.Decimal `json:"total_value_locked_token0"`
	TotalValueLockedToken1       decimal.Decimal `json:"total_value_locked_token1"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	VolumeToken0                 decimal.Decimal `json:"volume_token0"`
	VolumeToken1                 decimal.Decimal `json:"volume_token1"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	CollectedFeesToken0          decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1          decimal.Decimal `json:"collected_fees_token1"`
	CollectedFeesUSD             decimal.Decimal `json:"collected_fees_usd"`
}

// Initialized reports whether Initialize (or a Swap) already set the price of the pool
func (p *Pool) Initialized() bool {
	return p != nil && p.SqrtPrice != nil && p.SqrtPrice.Sign() > 0
}

// InRange pool current tick lies within [lower, upper); false while tick is unset
func (p *Pool) InRange(lower, upper int64) bool {
	tick, ok := p.Tick.Get()
	if !ok {
		return false
	}
	return lower <= tick && upper > tick
}

type Token struct {
	ID                           string          `json:"id"`
	Symbol                       string          `json:"symbol"`
	Name                         string          `json:"name"`
	Decimals                     int32           `json:"decimals"`
	TotalSupply                  *big.Int        `json:"total_supply"`
	Volume                       decimal.Decimal `json:"volume"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	TxCount                      *big.Int        `json:"tx_count"`
	PoolCount                    *big.Int        `json:"pool_count"`
	TotalValueLocked             decimal.Decimal `json:"total_value_locked"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	DerivedETH                   decimal.Decimal `json:"derived_eth"`
	WhitelistPools               []string        `json:"whitelist_pools"`
}

// PriceUSD derived native price converted by the bundle rate
func (t *Token) PriceUSD(b *Bundle) decimal.Decimal {
	return t.DerivedETH.Mul(b.EthPriceUSD)
}

// Discretized price point within a pool, id = pool#tickIdx
type Tick struct {
	ID                   string          `json:"id"`
	PoolAddress          string          `json:"pool_address"`
	TickIdx              int64           `json:"tick_idx"`
	CreatedAtTimestamp   int64           `json:"created_at_timestamp"`
	CreatedAtBlockNumber uint64          `json:"created_at_block_number"`
	LiquidityGross       *big.Int        `json:"liquidity_gross"`
	LiquidityNet         *big.Int        `json:"liquidity_net"`
	Price0               decimal.Decimal `json:"price0"`
	Price1               decimal.Decimal `json:"price1"`
}

type Transaction struct {
	ID          string   `json:"id"` // tx hash
	BlockNumber uint64   `json:"block_number"`
	Timestamp   int64    `json:"timestamp"`
	GasUsed     *big.Int `json:"gas_used"`  // placeholder: receipts are not available here
	GasPrice    *big.Int `json:"gas_price"` // placeholder
}

// ----- immutable event records, id = txHash-logIndex -----

type Mint struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   int64           `json:"timestamp"`
	Pool        string          `json:"pool"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Owner       string          `json:"owner"`
	Sender      string          `json:"sender"`
	Origin      string          `json:"origin"`
	Amount      *big.Int        `json:"amount"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int64           `json:"tick_lower"`
	TickUpper   int64           `json:"tick_upper"`
	LogIndex    uint32          `json:"log_index"`
}

type Burn struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   int64           `json:"timestamp"`
	Pool        string          `json:"pool"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Owner       string          `json:"owner"`
	Origin      string          `json:"origin"`
	Amount      *big.Int        `json:"amount"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int64           `json:"tick_lower"`
	TickUpper   int64           `json:"tick_upper"`
	LogIndex    uint32          `json:"log_index"`
}

type Collect struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   int64           `json:"timestamp"`
	Pool        string          `json:"pool"`
	Owner       string          `json:"owner"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int64           `json:"tick_lower"`
	TickUpper   int64           `json:"tick_upper"`
	LogIndex    uint32          `json:"log_index"`
}

type Swap struct {
	ID           string          `json:"id"`
	Transaction  string          `json:"transaction"`
	Timestamp    int64           `json:"timestamp"`
	Pool         string          `json:"pool"`
	Token0       string          `json:"token0"`
	Token1       string          `json:"token1"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
	Origin       string          `json:"origin"`
	Amount0      decimal.Decimal `json:"amount0"`
	Amount1      decimal.Decimal `json:"amount1"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	SqrtPriceX96 *big.Int        `json:"sqrt_price_x96"`
	Tick         int64           `json:"tick"`
	LogIndex     uint32          `json:"log_index"`
}
