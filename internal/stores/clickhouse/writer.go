package clickhouse

import (
	"context"
	"errors"
	"sync"
	"time"

	"dexstats/internal/config"

	"gitlab.com/nevasik7/alerting/logger"
)

var ErrWriterClosed = errors.New("clickhouse writer closed")

// PoolEventRow one immutable Mint/Burn/Collect/Swap record in pool_events
type PoolEventRow struct {
	EventTime    time.Time
	ChainID      uint64
	Kind         string
	EventID      string
	TxHash       string
	LogIndex     uint32
	BlockNumber  uint64
	Pool         string
	Token0       string
	Token1       string
	Owner        string
	Sender       string
	Recipient    string
	Origin       string
	Amount       string // liquidity delta, base-10
	Amount0      string // decimal string, exact
	Amount1      string
	AmountUSD    string
	TickLower    int32
	TickUpper    int32
	Tick         int32
	SqrtPriceX96 string
}

type insertFunc func(ctx context.Context, rows []PoolEventRow) error

// Writer batches rows by size or interval and inserts them with retries
type Writer struct {
	log    logger.Logger
	cfg    config.ClickHouseWriterConfig
	insert insertFunc
	health func(ctx context.Context) error

	mu       sync.RWMutex
	closed   bool
	inCh     chan PoolEventRow
	closedCh chan struct{}
	wg       sync.WaitGroup
}

func NewWriter(log logger.Logger, conn *Conn, cfg config.ClickHouseWriterConfig) *Writer {
	w := newWriter(log, cfg, nil)
	w.insert = func(ctx context.Context, rows []PoolEventRow) error {
		return insertBatch(ctx, conn, rows)
	}
	w.health = conn.Health
	w.start()
	return w
}

func newWriter(log logger.Logger, cfg config.ClickHouseWriterConfig, insert insertFunc) *Writer {
	// sane defaults
	if cfg.BatchMaxRows <= 0 {
		cfg.BatchMaxRows = 1000
	}
	if cfg.BatchMaxInterval <= 0 {
		cfg.BatchMaxInterval = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	return &Writer{
		log:      log,
		cfg:      cfg,
		insert:   insert,
		inCh:     make(chan PoolEventRow, 8192), // expected EPS peak * time to level off
		closedCh: make(chan struct{}),
	}
}

func (w *Writer) start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *Writer) Enqueue(ctx context.Context, rows ...PoolEventRow) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}

	for _, row := range rows {
		select {
		case w.inCh <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *Writer) Health(ctx context.Context) error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ErrWriterClosed
	}
	if w.health == nil {
		return nil
	}
	return w.health(ctx)
}

// Close flushes what is buffered; safe to call more than once
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.inCh)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	batch := make([]PoolEventRow, 0, w.cfg.BatchMaxRows)
	ticker := time.NewTicker(w.cfg.BatchMaxInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := w.insertWithRetry(context.Background(), batch); err != nil {
			w.log.Errorf("Failed insert [%d] rows by batch to clickhouse, error=%v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-w.inCh:
			if !ok {
				flush()
				return
			}

			batch = append(batch, row)
			if len(batch) >= w.cfg.BatchMaxRows {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// repeat with exponential delay
func (w *Writer) insertWithRetry(ctx context.Context, rows []PoolEventRow) error {
	backoff := w.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if lastErr = w.insert(ctx, rows); lastErr == nil {
			return nil
		}
		if attempt == w.cfg.MaxRetries {
			break
		}
		w.log.Warnf("clickhouse insert attempt %d failed: %v", attempt+1, lastErr)
		time.Sleep(backoff)
		backoff *= 2
	}

	return lastErr
}

func insertBatch(ctx context.Context, conn *Conn, rows []PoolEventRow) error {
	batch, err := conn.Native.PrepareBatch(ctx, `
		INSERT INTO pool_events (
			event_time,
			chain_id,
			kind,
			event_id,
			tx_hash,
			log_index,
			block_number,
			pool,
			token0,
			token1,
			owner,
			sender,
			recipient,
			origin,
			amount,
			amount0,
			amount1,
			amount_usd,
			tick_lower,
			tick_upper,
			tick,
			sqrt_price_x96
		)
	`)
	if err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		if err = batch.Append(
			r.EventTime,
			r.ChainID,
			r.Kind,
			r.EventID,
			r.TxHash,
			r.LogIndex,
			r.BlockNumber,
			r.Pool,
			r.Token0,
			r.Token1,
			r.Owner,
			r.Sender,
			r.Recipient,
			r.Origin,
			r.Amount,
			r.Amount0,
			r.Amount1,
			r.AmountUSD,
			r.TickLower,
			r.TickUpper,
			r.Tick,
			r.SqrtPriceX96,
		); err != nil {
			_ = batch.Abort()
			return err
		}
	}

	return batch.Send()
}
