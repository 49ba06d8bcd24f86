package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	loggerCfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

func newTestLogger() logger.Logger {
	return logger.New(loggerCfg.LoggerCfg{
		Level:  "error",
		Format: "json",
	})
}

// recordID as the aggregator builds it: "<chain>:<txHash>-<logIndex>"
func recordID(chain uint64, n int) string {
	return fmt.Sprintf("%d:0x%064x-%d", chain, n, n%7)
}

func TestMemoryDedupe_FirstSeenThenDuplicate(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger(), time.Minute, 0)
	defer m.Close()

	ctx := context.Background()
	id := recordID(1, 12369621)

	seen, err := m.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen, "first delivery")

	seen, err = m.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen, "redelivery")

	// same tx and log on another chain is a different record
	seen, err = m.Seen(ctx, recordID(10, 12369621))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryDedupe_Expiration(t *testing.T) {
	t.Parallel()

	ttl := 50 * time.Millisecond
	m := NewInMemoryDedupe(newTestLogger(), ttl, 0)
	defer m.Close()

	ctx := context.Background()
	id := recordID(1, 7)

	seen, _ := m.Seen(ctx, id)
	require.False(t, seen)

	time.Sleep(ttl + 20*time.Millisecond)

	seen, _ = m.Seen(ctx, id)
	assert.False(t, seen, "expired id counts as new")
}

func TestMemoryDedupe_JanitorCleansUp(t *testing.T) {
	t.Parallel()

	ttl := 20 * time.Millisecond
	every := 15 * time.Millisecond
	m := NewInMemoryDedupe(newTestLogger(), ttl, every)
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = m.Seen(ctx, recordID(1, i))
	}
	require.Equal(t, 5, m.Len())

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, every)
}

func TestMemoryDedupe_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger(), 50*time.Millisecond, 10*time.Millisecond)
	assert.NotPanics(t, func() {
		m.Close()
		m.Close()
	})
}

func TestMemoryDedupe_ConcurrentSameID(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger(), time.Minute, 0)
	defer m.Close()

	ctx := context.Background()
	id := recordID(1, 42)
	const workers = 64

	var (
		wg         sync.WaitGroup
		firstCount atomic.Int64
		dupCount   atomic.Int64
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			seen, err := m.Seen(ctx, id)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if seen {
				dupCount.Add(1)
			} else {
				firstCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), firstCount.Load(), "exactly one delivery wins")
	assert.Equal(t, int64(workers-1), dupCount.Load())
}

func TestMemoryDedupe_ConcurrentDifferentIDs(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger(), time.Minute, 0)
	defer m.Close()

	ctx := context.Background()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id string) {
			defer wg.Done()
			seen, err := m.Seen(ctx, id)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if seen {
				t.Errorf("first Seen for %s must be false", id)
			}
		}(recordID(uint64(i%3+1), i))
	}
	wg.Wait()

	assert.Equal(t, n, m.Len())
}

// Forget drops the id, the next Seen treats it as new
func TestMemoryDedupe_Forget(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger(), time.Hour, 0)
	defer m.Close()

	ctx := context.Background()
	id := recordID(1, 4)

	seen, _ := m.Seen(ctx, id)
	require.False(t, seen)
	require.NoError(t, m.Forget(ctx, id))
	assert.Equal(t, 0, m.Len())

	seen, _ = m.Seen(ctx, id)
	assert.False(t, seen, "Seen after Forget")
	seen, _ = m.Seen(ctx, id)
	assert.True(t, seen)

	assert.NoError(t, m.Forget(ctx, "missing"), "unknown id is a no-op")
}
