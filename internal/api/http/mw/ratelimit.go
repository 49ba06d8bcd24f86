package mw

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"dexstats/internal/config"
	"dexstats/pkg/httputil"

	"github.com/redis/go-redis/v9"
	"gitlab.com/nevasik7/alerting/logger"
)

// RateLimitMiddleware token bucket per bearer subject, per client IP for anonymous callers.
// Buckets live in redis so every replica shares them; redis errors let the request through
type RateLimitMiddleware struct {
	log    logger.Logger
	rdb    redis.Scripter
	cfg    config.RateLimitConfig
	prefix string
}

func NewRateLimit(log logger.Logger, rdb redis.Scripter, cfg config.RateLimitConfig) (*RateLimitMiddleware, error) {
	if rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	if cfg.RefillPerSec <= 0 || cfg.Burst <= 0 {
		return nil, errors.New("rate limit refill_per_sec and burst must be positive")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "rl:"
	}
	return &RateLimitMiddleware{log: log, rdb: rdb, cfg: cfg, prefix: prefix}, nil
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.prefix + "ip:" + clientIP(r)
		if sub := subjectFromContext(r); sub != "" {
			key = m.prefix + "sub:" + sub
		}

		allowed, left, err := m.allow(r.Context(), key, time.Now())
		if err != nil {
			m.log.Warnf("Rate limit check failed for %s, letting request through: %v", key, err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.Burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
		if !allowed {
			w.Header().Set("Retry-After", "1")
			_ = httputil.Error(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// tokens are kept in milli-tokens so the script stays in integer arithmetic
var luaTokenBucket = redis.NewScript(`
local key   = KEYS[1]
local now   = tonumber(ARGV[1])
local rate  = tonumber(ARGV[2])
local burst = tonumber(ARGV[3]) * 1000
local ttl   = tonumber(ARGV[4])

local last   = tonumber(redis.call('HGET', key, 'ts') or now)
local tokens = tonumber(redis.call('HGET', key, 'tok') or burst)

if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate)
end

local allowed = 0
if tokens >= 1000 then
  tokens = tokens - 1000
  allowed = 1
end

redis.call('HSET', key, 'tok', tokens, 'ts', now)
redis.call('EXPIRE', key, ttl)

return {allowed, math.floor(tokens / 1000)}
`)

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, now time.Time) (bool, int64, error) {
	res, err := luaTokenBucket.Run(ctx, m.rdb, []string{key},
		now.UnixMilli(),
		m.cfg.RefillPerSec,
		m.cfg.Burst,
		int(m.cfg.TTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errors.New("unexpected token bucket reply")
	}
	return res[0] == 1, res[1], nil
}

// clientIP RemoteAddr host; chi's RealIP middleware has already applied proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
