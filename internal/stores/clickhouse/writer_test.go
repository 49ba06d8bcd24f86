package clickhouse

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"dexstats/internal/config"
	"dexstats/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

func newTestLogger() logger.Logger {
	return logger.New(lgcfg.LoggerCfg{Level: "error", Format: "json"})
}

type sink struct {
	mu      sync.Mutex
	batches [][]PoolEventRow
	fails   int
}

func (s *sink) insert(_ context.Context, rows []PoolEventRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("temporary")
	}
	cp := append([]PoolEventRow(nil), rows...)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *sink) rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestWriter_FlushesBySize(t *testing.T) {
	s := &sink{}
	w := newWriter(newTestLogger(), config.ClickHouseWriterConfig{BatchMaxRows: 2, BatchMaxInterval: time.Hour}, s.insert)
	w.start()

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, PoolEventRow{EventID: "a"}, PoolEventRow{EventID: "b"}))

	assert.Eventually(t, func() bool { return s.rows() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Close(ctx))
}

func TestWriter_FlushesOnCloseAndRejectsAfter(t *testing.T) {
	s := &sink{}
	w := newWriter(newTestLogger(), config.ClickHouseWriterConfig{BatchMaxRows: 100, BatchMaxInterval: time.Hour}, s.insert)
	w.start()

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, PoolEventRow{EventID: "a"}))
	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, 1, s.rows())
	assert.ErrorIs(t, w.Enqueue(ctx, PoolEventRow{EventID: "b"}), ErrWriterClosed)
}

func TestWriter_Retries(t *testing.T) {
	s := &sink{fails: 2}
	w := newWriter(newTestLogger(), config.ClickHouseWriterConfig{
		BatchMaxRows:     1,
		BatchMaxInterval: time.Hour,
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
	}, s.insert)
	w.start()

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, PoolEventRow{EventID: "a"}))
	require.NoError(t, w.Close(ctx))
	assert.Equal(t, 1, s.rows())
}

func TestRows(t *testing.T) {
	swap := &domain.Swap{
		ID:           "0xabc-3",
		Transaction:  "0xabc",
		Timestamp:    1_700_000_000,
		Pool:         "0xpool",
		Amount0:      decimal.RequireFromString("-1.5"),
		Amount1:      decimal.RequireFromString("3000"),
		AmountUSD:    decimal.RequireFromString("3000"),
		SqrtPriceX96: big.NewInt(42),
		Tick:         -200,
		LogIndex:     3,
	}
	row := SwapRow(1, 99, swap)
	assert.Equal(t, "Swap", row.Kind)
	assert.Equal(t, "-1.5", row.Amount0)
	assert.Equal(t, "42", row.SqrtPriceX96)
	assert.Equal(t, int32(-200), row.Tick)
	assert.Equal(t, uint64(99), row.BlockNumber)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), row.EventTime)

	mint := MintRow(1, 5, &domain.Mint{ID: "m", Amount: big.NewInt(7), TickLower: -60, TickUpper: 60})
	assert.Equal(t, "7", mint.Amount)
	assert.Equal(t, int32(-60), mint.TickLower)

	burn := BurnRow(1, 5, &domain.Burn{ID: "b"})
	assert.Equal(t, "0", burn.Amount)

	collect := CollectRow(1, 5, &domain.Collect{ID: "c", Owner: "0xo"})
	assert.Equal(t, "Collect", collect.Kind)
	assert.Equal(t, "0xo", collect.Owner)
}
