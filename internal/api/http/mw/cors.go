package mw

import (
	"net/http"
	"slices"
	"strings"

	"dexstats/internal/config"
)

type CORSMiddleware struct {
	origins []string
	methods string
	headers string
}

// NewCORS returns nil when CORS is disabled
func NewCORS(cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &CORSMiddleware{
		origins: cfg.Origins,
		methods: joinOrDefault(cfg.Methods, "GET, OPTIONS"),
		headers: joinOrDefault(cfg.Headers, "Authorization, Content-Type"),
	}
}

// allowOrigin value of Access-Control-Allow-Origin for origin, empty when not allowed
func (c *CORSMiddleware) allowOrigin(origin string) string {
	if len(c.origins) == 0 || slices.Contains(c.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func (c *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")

		allowed := c.allowOrigin(r.Header.Get("Origin"))
		if allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", c.methods)
			w.Header().Set("Access-Control-Allow-Headers", c.headers)
		}

		// preflight never reaches auth
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func joinOrDefault(v []string, def string) string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return strings.Join(out, ", ")
}
