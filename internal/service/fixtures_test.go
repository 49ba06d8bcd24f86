package service

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"dexstats/internal/config"
	"dexstats/internal/domain"
	"dexstats/internal/stores"
	"dexstats/internal/tokenmeta"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

const (
	chainID  uint64 = 1
	factory         = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	usdc            = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth            = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	refPool         = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"
	unknownT        = "0x00000000000000000000000000000000000000aa"
	trader          = "0xe592427a0aece92de3edee1f18e0157c05861564"

	// 1 WETH = 2500 USDC, USDC has 6 decimals: raw token1/token0 = 4e8
	initTick int64 = 198080
	rangeLo  int64 = 197940
	rangeHi  int64 = 198240
)

// 20000 * 2^96
var refSqrtPrice = new(big.Int).Mul(big.NewInt(20000), new(big.Int).Lsh(big.NewInt(1), 96))

func newTestLogger() logger.Logger {
	return logger.New(lgcfg.LoggerCfg{Level: "error", Format: "json"})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}

func units(v int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		ChainID:                            chainID,
		Name:                               "mainnet",
		FactoryAddress:                     factory,
		StablecoinWrappedNativePoolAddress: refPool,
		StablecoinIsToken0:                 true,
		WrappedNativeAddress:               weth,
		StablecoinAddresses:                []string{usdc},
		MinimumNativeLocked:                "1",
		WhitelistTokens:                    []string{usdc, weth},
		TokenOverrides: []config.TokenOverrideConfig{
			{Address: usdc, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			{Address: weth, Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, TotalSupply: "1000"},
		},
	}
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	backend *stores.Memory
	proc    *Processor

	block uint64
	txN   int
}

func newFixture(t *testing.T, mutate ...func(*config.ChainConfig)) *fixture {
	t.Helper()

	cfg := testChainConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	chains, err := config.NewChainTable([]config.ChainConfig{cfg})
	require.NoError(t, err)

	log := newTestLogger()
	backend := stores.NewMemory()

	return &fixture{
		t:       t,
		ctx:     context.Background(),
		backend: backend,
		proc:    NewProcessor(log, chains, backend, tokenmeta.NewResolver(log, nil, 0)),
		block:   100,
	}
}

// event at the next position, its own transaction
func (f *fixture) event(src string, params domain.Params) *domain.Event {
	f.block++
	f.txN++
	return &domain.Event{
		ChainID:         chainID,
		SrcAddress:      src,
		BlockNumber:     f.block,
		BlockTimestamp:  1_700_000_000 + int64(f.block)*12,
		TransactionHash: fmt.Sprintf("0x%064x", f.txN),
		TransactionFrom: trader,
		LogIndex:        uint32(f.txN % 7),
		Kind:            params.Kind(),
		Params:          params,
	}
}

func (f *fixture) apply(ev *domain.Event) *Result {
	f.t.Helper()
	res, err := f.proc.Apply(f.ctx, ev)
	require.NoError(f.t, err)
	require.NotNil(f.t, res)
	return res
}

func (f *fixture) createPool(pool, token0, token1 string) *Result {
	return f.apply(f.event(factory, domain.PoolCreatedParams{
		Token0: token0,
		Token1: token1,
		Fee:    big.NewInt(3000),
		Pool:   pool,
	}))
}

func (f *fixture) initialize(pool string) *Result {
	return f.apply(f.event(pool, domain.InitializeParams{SqrtPriceX96: refSqrtPrice, Tick: initTick}))
}

// reference pool created and priced: ETH at 2500 USD
func (f *fixture) seed() {
	f.createPool(refPool, usdc, weth)
	f.initialize(refPool)
}

func mintParams(lo, hi int64, liquidity, usdcAmount, wethAmount int64) domain.MintParams {
	return domain.MintParams{
		Sender:    trader,
		Owner:     trader,
		TickLower: lo,
		TickUpper: hi,
		Amount:    big.NewInt(liquidity),
		Amount0:   units(usdcAmount, 6),
		Amount1:   units(wethAmount, 18),
	}
}

func burnParams(lo, hi int64, liquidity, usdcAmount, wethAmount int64) domain.BurnParams {
	return domain.BurnParams{
		Owner:     trader,
		TickLower: lo,
		TickUpper: hi,
		Amount:    big.NewInt(liquidity),
		Amount0:   units(usdcAmount, 6),
		Amount1:   units(wethAmount, 18),
	}
}

// 2500 USDC out, 1 WETH in, price unchanged
func swapParams() domain.SwapParams {
	return domain.SwapParams{
		Sender:       trader,
		Recipient:    trader,
		Amount0:      new(big.Int).Neg(units(2500, 6)),
		Amount1:      units(1, 18),
		SqrtPriceX96: refSqrtPrice,
		Liquidity:    big.NewInt(1000),
		Tick:         initTick,
	}
}

func load[T any](t *testing.T, f *fixture, kind domain.EntityKind, id string) *T {
	t.Helper()
	v, ok, err := stores.Get[T](f.ctx, f.backend, stores.NewKey(chainID, kind, id))
	require.NoError(t, err)
	require.True(t, ok, "%s %s not stored", kind, id)
	return v
}

func exists(t *testing.T, f *fixture, kind domain.EntityKind, id string) bool {
	t.Helper()
	_, ok, err := f.backend.Get(f.ctx, stores.NewKey(chainID, kind, id))
	require.NoError(t, err)
	return ok
}
