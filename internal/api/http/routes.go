package http

import (
	"dexstats/internal/api/http/handlers"
	"dexstats/internal/api/http/mw"
	"dexstats/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// BuildRouter wires the read API. Any middleware may be nil
func BuildRouter(
	h *handlers.Handler,
	gatherer prometheus.Gatherer,
	logMW *mw.LoggingMiddleware,
	gzipMW *mw.GzipMiddleware,
	rateLimitMW *mw.RateLimitMiddleware,
	jwtMW *mw.JWTMiddleware,
	corsMW *mw.CORSMiddleware,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if logMW != nil {
		r.Use(logMW.Handler)
	}
	if corsMW != nil {
		r.Use(corsMW.Handler)
	}

	// tech endpoints, no auth
	r.Get("/healthz", h.Healthz)
	r.Get("/readiness", h.Readiness)
	r.Method("GET", "/metrics", metrics.Handler(gatherer))

	r.Route("/api", func(api chi.Router) {
		// jwt first so the limiter can key on the subject
		if jwtMW != nil {
			api.Use(jwtMW.Handler)
		}
		if rateLimitMW != nil {
			api.Use(rateLimitMW.Handler)
		}
		if gzipMW != nil {
			api.Use(gzipMW.Handler)
		}

		api.Route("/chains/{chain}", func(c chi.Router) {
			c.Get("/factory", h.Factory)
			c.Get("/bundle", h.Bundle)
			c.Get("/watermark", h.Watermark)
			c.Get("/uniswap/day/{ts}", h.UniswapDay)
			c.Get("/swaps/{id}", h.Swap)

			c.Route("/pools/{id}", func(p chi.Router) {
				p.Get("/", h.Pool)
				p.Get("/ticks/{tick}", h.Tick)
				p.Get("/day/{ts}", h.PoolDay)
				p.Get("/hour/{ts}", h.PoolHour)
			})

			c.Route("/tokens/{id}", func(t chi.Router) {
				t.Get("/", h.Token)
				t.Get("/day/{ts}", h.TokenDay)
				t.Get("/hour/{ts}", h.TokenHour)
			})
		})
	})

	return r
}
