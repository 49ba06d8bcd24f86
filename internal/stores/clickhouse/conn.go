package clickhouse

import (
	"context"
	"fmt"
	"time"

	"dexstats/internal/config"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

type Conn struct {
	Native ch.Conn
}

func New(ctx context.Context, cfg *config.ClickHouseConfig) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("clickhouse config cannot be nil")
	}
	opts, err := ch.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed parse DSN ch, error=%w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	if opts.Compression == nil {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}

	opts.ClientInfo = ch.ClientInfo{
		Products: []struct{ Name, Version string }{
			{
				Name:    "dexstats",
				Version: "0.1.0",
			},
		},
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed Open ch, error=%w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err = conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed ping ch, error=%w", err)
	}

	return &Conn{Native: conn}, nil
}

func (c *Conn) Health(ctx context.Context) error {
	return c.Native.Ping(ctx)
}

func (c *Conn) Close() error {
	return c.Native.Close()
}

// amounts stay strings so no precision is lost to a fixed-scale Decimal
const poolEventsDDL = `
CREATE TABLE IF NOT EXISTS pool_events (
	event_time     DateTime,
	chain_id       UInt64,
	kind           LowCardinality(String),
	event_id       String,
	tx_hash        String,
	log_index      UInt32,
	block_number   UInt64,
	pool           String,
	token0         String,
	token1         String,
	owner          String,
	sender         String,
	recipient      String,
	origin         String,
	amount         String,
	amount0        String,
	amount1        String,
	amount_usd     String,
	tick_lower     Int32,
	tick_upper     Int32,
	tick           Int32,
	sqrt_price_x96 String
)
ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(event_time)
ORDER BY (chain_id, pool, block_number, log_index, kind)`

// EnsureSchema creates pool_events when missing; replays collapse on the sort key
func (c *Conn) EnsureSchema(ctx context.Context) error {
	if err := c.Native.Exec(ctx, poolEventsDDL); err != nil {
		return fmt.Errorf("create pool_events: %w", err)
	}
	return nil
}
