package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"dexstats/internal/domain"
	"dexstats/internal/pricing"

	"github.com/shopspring/decimal"
)

// LegacySwapDenylist pool whose swaps are never applied, on any chain
const LegacySwapDenylist = "0x9663f2ca0454accad3e094448ea6f77443880454"

var ErrInvalidChain = errors.New("invalid chain config")

// Chain resolved read-only settings of one chain
type Chain struct {
	ID                 uint64
	Name               string
	Factory            string
	ReferencePool      string // stablecoin / wrapped native pool
	StablecoinIsToken0 bool
	Pricing            pricing.Params
	Whitelist          pricing.Set
	Overrides          map[string]domain.TokenMetadata

	poolsToIndex  pricing.Set
	poolsToSkip   pricing.Set
	skipSwapPools pricing.Set
}

// Indexed pools-to-index allowlist (when non-empty) and pools-to-skip denylist
func (c *Chain) Indexed(pool string) bool {
	if c.poolsToSkip.Has(pool) {
		return false
	}
	return len(c.poolsToIndex) == 0 || c.poolsToIndex.Has(pool)
}

// SkipSwap swaps on these pools are ignored
func (c *Chain) SkipSwap(pool string) bool {
	return c.skipSwapPools.Has(pool)
}

// ChainTable chain id -> settings, built once at startup
type ChainTable map[uint64]*Chain

func (t ChainTable) Get(chainID uint64) (*Chain, bool) {
	c, ok := t[chainID]
	return c, ok
}

func NewChainTable(cfgs []ChainConfig) (ChainTable, error) {
	table := make(ChainTable, len(cfgs))
	for i := range cfgs {
		c, err := resolveChain(&cfgs[i])
		if err != nil {
			return nil, err
		}
		if _, dup := table[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chain_id %d", ErrInvalidChain, c.ID)
		}
		table[c.ID] = c
	}
	return table, nil
}

func resolveChain(cfg *ChainConfig) (*Chain, error) {
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("%w: chain_id is required", ErrInvalidChain)
	}
	wrap := func(field string, err error) error {
		return fmt.Errorf("%w: chain %d %s: %v", ErrInvalidChain, cfg.ChainID, field, err)
	}

	factory, err := address(cfg.FactoryAddress)
	if err != nil {
		return nil, wrap("factory_address", err)
	}
	refPool, err := address(cfg.StablecoinWrappedNativePoolAddress)
	if err != nil {
		return nil, wrap("stablecoin_wrapped_native_pool_address", err)
	}
	wrapped, err := address(cfg.WrappedNativeAddress)
	if err != nil {
		return nil, wrap("wrapped_native_address", err)
	}

	minLocked := decimal.Zero
	if cfg.MinimumNativeLocked != "" {
		if minLocked, err = decimal.NewFromString(cfg.MinimumNativeLocked); err != nil {
			return nil, wrap("minimum_native_locked", err)
		}
	}

	stablecoins, err := addressSet(cfg.StablecoinAddresses)
	if err != nil {
		return nil, wrap("stablecoin_addresses", err)
	}
	whitelist, err := addressSet(cfg.WhitelistTokens)
	if err != nil {
		return nil, wrap("whitelist_tokens", err)
	}
	toIndex, err := addressSet(cfg.PoolsToIndex)
	if err != nil {
		return nil, wrap("pools_to_index", err)
	}
	toSkip, err := addressSet(cfg.PoolsToSkip)
	if err != nil {
		return nil, wrap("pools_to_skip", err)
	}
	skipSwap, err := addressSet(append([]string{LegacySwapDenylist}, cfg.SkipSwapPools...))
	if err != nil {
		return nil, wrap("skip_swap_pools", err)
	}

	overrides := make(map[string]domain.TokenMetadata, len(cfg.TokenOverrides))
	for _, o := range cfg.TokenOverrides {
		addr, err := address(o.Address)
		if err != nil {
			return nil, wrap("token_overrides", err)
		}
		meta := domain.TokenMetadata{
			Symbol:      o.Symbol,
			Name:        o.Name,
			Decimals:    o.Decimals,
			HasDecimals: true,
		}
		if o.TotalSupply != "" {
			supply, ok := new(big.Int).SetString(o.TotalSupply, 10)
			if !ok {
				return nil, wrap("token_overrides", fmt.Errorf("total_supply %q of %s", o.TotalSupply, addr))
			}
			meta.TotalSupply = supply
		}
		overrides[addr] = meta
	}

	return &Chain{
		ID:                 cfg.ChainID,
		Name:               cfg.Name,
		Factory:            factory,
		ReferencePool:      refPool,
		StablecoinIsToken0: cfg.StablecoinIsToken0,
		Pricing: pricing.Params{
			WrappedNative:       wrapped,
			Stablecoins:         stablecoins,
			MinimumNativeLocked: minLocked,
		},
		Whitelist:     whitelist,
		Overrides:     overrides,
		poolsToIndex:  toIndex,
		poolsToSkip:   toSkip,
		skipSwapPools: skipSwap,
	}, nil
}

func address(s string) (string, error) {
	addr, ok := domain.NormalizeAddress(strings.TrimSpace(s))
	if !ok {
		return "", fmt.Errorf("not an address: %q", s)
	}
	return addr, nil
}

func addressSet(in []string) (pricing.Set, error) {
	out := make(pricing.Set, len(in))
	for _, s := range in {
		addr, err := address(s)
		if err != nil {
			return nil, err
		}
		out[addr] = struct{}{}
	}
	return out, nil
}
