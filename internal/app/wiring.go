package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	httpapi "dexstats/internal/api/http"
	"dexstats/internal/api/http/handlers"
	"dexstats/internal/api/http/mw"
	"dexstats/internal/config"
	"dexstats/internal/dedupe"
	deduperedis "dexstats/internal/dedupe/redis"
	"dexstats/internal/ingest"
	"dexstats/internal/metrics"
	natspub "dexstats/internal/pubsub/nats"
	"dexstats/internal/security"
	"dexstats/internal/service"
	"dexstats/internal/stores"
	"dexstats/internal/stores/clickhouse"
	redisstore "dexstats/internal/stores/redis"
	"dexstats/internal/tokenmeta"
	"dexstats/internal/window"

	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

const metricsNamespace = "dexstats"

type Container struct {
	app *App
	log logger.Logger
	cfg *config.Config

	// infra
	redis *redisstore.Client
	ch    *clickhouse.Conn
	nc    *natspub.Client

	// deduper, only one of them is set
	memDedupe *dedupe.MemoryDedupe
	rdbDedupe *deduperedis.RedisDedupe

	// services
	aggService *service.AggregatorService
	chWriter   *clickhouse.Writer

	// servers
	httpSrv *httpapi.Server

	// metrics
	registry *prometheus.Registry
	profiler *pyroscope.Profiler
}

func (c *Container) Start(ctx context.Context) error {
	return c.app.Start(ctx)
}

// Errors see App.Errors
func (c *Container) Errors() <-chan error {
	return c.app.Errors()
}

func (c *Container) Stop(ctx context.Context) error {
	if err := c.app.Shutdown(ctx); err != nil {
		return fmt.Errorf("app shutdown is failed, error=%w", err)
	}
	return nil
}

// Build constructs the image of the app. The returned cleanup releases infra clients and
// must run after Stop; it is safe to call when Build failed half way
func Build(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialize logger")

	c := &Container{log: lg, cfg: cfg}
	cleanup := c.cleanup

	var err error
	fail := func(format string, args ...interface{}) (*Container, func(), error) {
		cleanup()
		return nil, func() {}, fmt.Errorf(format, args...)
	}

	// Pyroscope
	if c.profiler, err = metrics.InitPProf(&cfg.Metrics.Pyroscope, cfg.App.InstanceID); err != nil {
		return fail("pyroscope initialize failed: %w", err)
	}
	if c.profiler != nil {
		lg.Infof("Successfully initialize Pyroscope to %s as %s", cfg.Metrics.Pyroscope.ServerAddr, cfg.Metrics.Pyroscope.AppName)
	}

	// Prometheus
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(c.registry, metricsNamespace)

	chains, err := config.NewChainTable(cfg.Chains)
	if err != nil {
		return fail("chain table: %w", err)
	}
	lg.Infof("Successfully initialize %d chains", len(chains))

	// Redis client, needed by any redis-backed component
	needRedis := cfg.Stores.Entities == "redis" || cfg.Dedupe.Backend == "redis"
	if cfg.Stores.Redis.Addr == "" && needRedis {
		return fail("stores.redis.addr is required for entities=%s dedupe=%s", cfg.Stores.Entities, cfg.Dedupe.Backend)
	}
	if cfg.Stores.Redis.Addr != "" {
		if c.redis, err = redisstore.New(ctx, lg, &cfg.Stores.Redis); err != nil {
			return fail("failed to initialize redis client: %w", err)
		}
		lg.Infof("Successfully initialize redis client, addr=%s", cfg.Stores.Redis.Addr)
	}

	// Entity store
	var (
		backend   stores.Backend
		snapshots *Snapshotter
	)
	switch cfg.Stores.Entities {
	case "memory":
		mem := stores.NewMemory()
		backend = mem
		if c.redis != nil && cfg.App.SnapshotInterval > 0 {
			snapshots = NewSnapshotter(lg, mem, redisstore.NewSnapshotStore(c.redis, cfg.Stores.Redis.Prefix, cfg.App.InstanceID), cfg.App.SnapshotInterval)
			if _, err = snapshots.Restore(ctx); err != nil {
				return fail("restore snapshot: %w", err)
			}
		}
	case "redis":
		if backend, err = redisstore.NewEntityStore(c.redis, cfg.Stores.Redis.Prefix); err != nil {
			return fail("failed to initialize redis entity store: %w", err)
		}
	default:
		return fail("unknown entity store %q", cfg.Stores.Entities)
	}
	lg.Infof("Successfully initialize entity store %s", cfg.Stores.Entities)

	// Dedupe
	var deduper dedupe.Deduper
	switch cfg.Dedupe.Backend {
	case "memory":
		c.memDedupe = dedupe.NewInMemoryDedupe(lg, cfg.Dedupe.TTL, cfg.Dedupe.JanitorEvery)
		deduper = c.memDedupe
	case "redis":
		if c.rdbDedupe, err = deduperedis.NewRedisDeduper(lg, &cfg.Dedupe, c.redis); err != nil {
			return fail("failed to initialize redis deduper: %w", err)
		}
		deduper = c.rdbDedupe
	default:
		return fail("unknown dedupe backend %q", cfg.Dedupe.Backend)
	}
	lg.Infof("Successfully initialize Deduper %s by prefix %s", cfg.Dedupe.Backend, cfg.Dedupe.Prefix)

	// Token metadata, chain overrides first then the redis registry
	var fetcher tokenmeta.Fetcher
	if c.redis != nil {
		fetcher = tokenmeta.NewRegistry(c.redis, cfg.TokenMeta.Prefix)
	}
	resolver := tokenmeta.NewResolver(lg, fetcher, cfg.TokenMeta.Timeout)

	// NATS, ingest and broadcast share the connection
	if c.nc, err = natspub.New(lg, &cfg.PubSub.NATS); err != nil {
		return fail("failed to initialize nats client: %w", err)
	}
	lg.Infof("Successfully initialize nats client, url=%s", cfg.PubSub.NATS.URL)

	// ClickHouse
	var sink service.RecordSink
	if cfg.Stores.ClickHouse.Enabled {
		if c.ch, err = clickhouse.New(ctx, &cfg.Stores.ClickHouse); err != nil {
			return fail("failed to initialize clickhouse client: %w", err)
		}
		if err = c.ch.EnsureSchema(ctx); err != nil {
			return fail("clickhouse schema: %w", err)
		}
		url := strings.Split(cfg.Stores.ClickHouse.DSN, "?")
		lg.Infof("Successfully initialize clickhouse client, url=%s", url[0])

		c.chWriter = clickhouse.NewWriter(lg, c.ch, cfg.Stores.ClickHouse.Writer)
		sink = c.chWriter
		lg.Info("Successfully initialize clickhouse writer")
	}

	// Service Layer
	proc := service.NewProcessor(lg, chains, backend, resolver)
	c.aggService = service.NewAggregatorService(lg, proc, window.NewWatermark(), deduper, c.nc, sink, m, cfg.PubSub.NATS.BroadcastPrefix)
	if err = c.aggService.RestoreWatermarks(ctx); err != nil {
		return fail("restore watermarks: %w", err)
	}

	// Ingest
	dispatcher := ingest.NewDispatcher(lg, c.aggService, cfg.Ingest.LaneBuffer)
	subscriber, err := ingest.NewSubscriber(lg, c.nc, dispatcher, m, &cfg.Ingest)
	if err != nil {
		return fail("failed to initialize subscriber: %w", err)
	}
	lg.Infof("Successfully initialize ingest on %s", cfg.Ingest.Subject)

	// HTTP
	var jwtMW *mw.JWTMiddleware
	if cfg.Security.JWT.Enabled {
		verifier, err := security.NewRS256Verifier(&cfg.Security.JWT)
		if err != nil {
			return fail("failed to initialize JWT verifier: %w", err)
		}
		if jwtMW, err = mw.NewJWTMiddleware(verifier); err != nil {
			return fail("failed to initialize JWT middleware: %w", err)
		}
		lg.Info("Successfully initialize JWT-Verifier")
	}

	var rateLimitMW *mw.RateLimitMiddleware
	if cfg.API.RateLimit.Enabled {
		if c.redis == nil {
			lg.Warn("Rate limit enabled without redis, API is not limited")
		} else if rateLimitMW, err = mw.NewRateLimit(lg, c.redis, cfg.API.RateLimit); err != nil {
			return fail("failed to initialize rate limit: %w", err)
		}
	}

	router := httpapi.BuildRouter(
		handlers.NewHandler(lg, c.aggService),
		c.registry,
		mw.NewLogging(lg),
		mw.NewGzip(0, lg),
		rateLimitMW,
		jwtMW,
		mw.NewCORS(&cfg.API.HTTP.CORS),
	)
	c.httpSrv = httpapi.NewServer(lg, &cfg.API.HTTP, router)
	lg.Info("Successfully initialize HTTP server")

	c.app = New(lg, c.httpSrv, subscriber, dispatcher, snapshots)

	lg.Info("Successfully initialize Wiring")
	return c, cleanup, nil
}

func (c *Container) cleanup() {
	ctxClean, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lg := c.log

	// writer drains into the connection, close it first
	if c.chWriter != nil {
		if err := c.chWriter.Close(ctxClean); err != nil {
			lg.Errorf("Failed to close by cleanupF clickhouse writer: %v", err)
		}
	}
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			lg.Errorf("Failed to close by cleanupF clickhouse client: %v", err)
		}
	}
	if c.nc != nil {
		if err := c.nc.Close(); err != nil {
			lg.Errorf("Failed to close by cleanupF nats client: %v", err)
		}
	}
	if c.memDedupe != nil {
		c.memDedupe.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			lg.Errorf("Failed to close by cleanupF redis client: %v", err)
		}
	}
	if c.profiler != nil {
		if err := c.profiler.Stop(); err != nil {
			lg.Errorf("Failed to stop profiler: %v", err)
		}
	}

	lg.Info("Successfully cleaned up dependency")
}
