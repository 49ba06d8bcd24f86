package tokenmeta

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	rdb "dexstats/internal/stores/redis"

	goredis "github.com/redis/go-redis/v9"
)

var _ Fetcher = (*Registry)(nil)

// Registry Fetcher over a Redis hash per token, filled by an external metadata loader:
//
//	<prefix><chain>:<address> -> decimals, symbol, name, total_supply
type Registry struct {
	rdb    *rdb.Client
	prefix string
}

func NewRegistry(rdb *rdb.Client, prefix string) *Registry {
	if prefix == "" {
		prefix = "tokenmeta:"
	}
	return &Registry{rdb: rdb, prefix: prefix}
}

func (r *Registry) key(chainID uint64, token string) string {
	return r.prefix + strconv.FormatUint(chainID, 10) + ":" + token
}

func (r *Registry) field(ctx context.Context, chainID uint64, token, field string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.key(chainID, token), field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", r.key(chainID, token), field, err)
	}
	return v, true, nil
}

func (r *Registry) Decimals(ctx context.Context, chainID uint64, token string) (int32, bool, error) {
	v, ok, err := r.field(ctx, chainID, token, "decimals")
	if err != nil || !ok {
		return 0, false, err
	}
	d, err := strconv.ParseInt(v, 10, 32)
	if err != nil || d < 0 {
		return 0, false, fmt.Errorf("invalid decimals %q for %s", v, token)
	}
	return int32(d), true, nil
}

func (r *Registry) Symbol(ctx context.Context, chainID uint64, token string) (string, bool, error) {
	return r.field(ctx, chainID, token, "symbol")
}

func (r *Registry) Name(ctx context.Context, chainID uint64, token string) (string, bool, error) {
	return r.field(ctx, chainID, token, "name")
}

func (r *Registry) TotalSupply(ctx context.Context, chainID uint64, token string) (*big.Int, bool, error) {
	v, ok, err := r.field(ctx, chainID, token, "total_supply")
	if err != nil || !ok {
		return nil, false, err
	}
	supply, parsed := new(big.Int).SetString(v, 10)
	if !parsed {
		return nil, false, fmt.Errorf("invalid total_supply %q for %s", v, token)
	}
	return supply, true, nil
}
