package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dexstats/internal/config"
	rdb "dexstats/internal/stores/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

func newTestLogger() logger.Logger {
	return logger.New(lgcfg.LoggerCfg{Level: "error", Format: "json"})
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *rdb.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &rdb.Client{
		Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
	}
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func newDeduper(t *testing.T, client *rdb.Client, prefix string, ttl time.Duration) *RedisDedupe {
	t.Helper()
	d, err := NewRedisDeduper(newTestLogger(), &config.DedupeConfig{Prefix: prefix, TTL: ttl}, client)
	require.NoError(t, err)
	return d
}

func TestNewRedisDeduper(t *testing.T) {
	_, client := setupTestRedis(t)

	tests := []struct {
		name       string
		cfg        *config.DedupeConfig
		client     *rdb.Client
		wantErr    string
		wantPrefix string
	}{
		{name: "configured", cfg: &config.DedupeConfig{Prefix: "dexstats:dedupe:", TTL: 24 * time.Hour}, client: client, wantPrefix: "dexstats:dedupe:"},
		{name: "default prefix", cfg: &config.DedupeConfig{TTL: time.Hour}, client: client, wantPrefix: "dedupe:"},
		{name: "nil config", client: client, wantErr: "config is required"},
		{name: "nil redis", cfg: &config.DedupeConfig{TTL: time.Hour}, wantErr: "redis client is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewRedisDeduper(newTestLogger(), tt.cfg, tt.client)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, d)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, d.prefix)
			assert.Equal(t, tt.cfg.TTL, d.ttl)
		})
	}
}

func TestRedisDedupe_SeenMarksWithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := newDeduper(t, client, "dexstats:dedupe:", time.Hour)

	ctx := context.Background()
	const id = "1:0x125e0b641d4a4b08806bf52c0c6757648c9963bcda8681e4f996f09e00d4c2cc-12"

	seen, err := d.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen, "first delivery")

	key := "dexstats:dedupe:" + id
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	seen, err = d.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen, "redelivery")
}

func TestRedisDedupe_PrefixIsolation(t *testing.T) {
	_, client := setupTestRedis(t)
	a := newDeduper(t, client, "node-a:", time.Hour)
	b := newDeduper(t, client, "node-b:", time.Hour)

	ctx := context.Background()

	seen, err := a.Seen(ctx, "1:0xabc-0")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = b.Seen(ctx, "1:0xabc-0")
	require.NoError(t, err)
	assert.False(t, seen, "another prefix is another namespace")
}

func TestRedisDedupe_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := newDeduper(t, client, "test:", time.Minute)

	ctx := context.Background()

	seen, err := d.Seen(ctx, "1:0xabc-3")
	require.NoError(t, err)
	require.False(t, seen)

	mr.FastForward(2 * time.Minute)

	seen, err = d.Seen(ctx, "1:0xabc-3")
	require.NoError(t, err)
	assert.False(t, seen, "expired id is new again")
}

func TestRedisDedupe_ManyIDs(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := newDeduper(t, client, "test:", time.Hour)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		seen, err := d.Seen(ctx, fmt.Sprintf("%d:0x%02x-%d", i%2+1, i, i))
		require.NoError(t, err)
		assert.False(t, seen)
	}
	assert.Len(t, mr.Keys(), 50)
}

func TestRedisDedupe_Forget(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := newDeduper(t, client, "test:", time.Hour)

	ctx := context.Background()

	_, err := d.Seen(ctx, "1:0xdead-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("test:1:0xdead-1"))

	require.NoError(t, d.Forget(ctx, "1:0xdead-1"))
	assert.False(t, mr.Exists("test:1:0xdead-1"))

	seen, err := d.Seen(ctx, "1:0xdead-1")
	require.NoError(t, err)
	assert.False(t, seen, "forgotten id is processed again")

	assert.NoError(t, d.Forget(ctx, "never-seen"), "unknown id is a no-op")
}

func TestRedisDedupe_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := newDeduper(t, client, "test:", time.Hour)

	mr.Close()
	ctx := context.Background()

	seen, err := d.Seen(ctx, "1:0xabc-9")
	require.Error(t, err)
	assert.False(t, seen)
	assert.Contains(t, err.Error(), "redis SetNX error")

	assert.Error(t, d.Forget(ctx, "1:0xabc-9"))
	assert.Error(t, d.Health(ctx))
}

func TestRedisDedupe_ContextCancelled(t *testing.T) {
	_, client := setupTestRedis(t)
	d := newDeduper(t, client, "test:", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seen, err := d.Seen(ctx, "1:0xabc-5")
	assert.Error(t, err)
	assert.False(t, seen)
}
