package mw

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dexstats/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzip_CompressesWhenAccepted(t *testing.T) {
	body := strings.Repeat(`{"pool":"0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"}`, 50)
	h := NewGzip(0, newTestLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/chains/1/pools/x", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), len(body))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestGzip_Passthrough(t *testing.T) {
	h := NewGzip(0, newTestLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain", rec.Body.String())

	// handler answered without a body
	h = NewGzip(0, newTestLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestCORS(t *testing.T) {
	assert.Nil(t, NewCORS(&config.CORSConfig{Enabled: false}))
	assert.Nil(t, NewCORS(nil))

	c := NewCORS(&config.CORSConfig{
		Enabled: true,
		Origins: []string{"https://app.example"},
		Methods: []string{"GET", " ", "OPTIONS"},
	})
	require.NotNil(t, c)

	reached := false
	h := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantAllow  string
		wantStatus int
		wantNext   bool
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://app.example", wantAllow: "https://app.example", wantStatus: http.StatusOK, wantNext: true},
		{name: "foreign origin", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK, wantNext: true},
		{name: "preflight", method: http.MethodOptions, origin: "https://app.example", preflight: true, wantAllow: "https://app.example", wantStatus: http.StatusNoContent},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(tt.method, "/api/chains/1/bundle", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, reached)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllow != "" {
				assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}

	wildcard := NewCORS(&config.CORSConfig{Enabled: true, Origins: []string{"*"}})
	assert.Equal(t, "*", wildcard.allowOrigin("https://anything.example"))
	assert.Equal(t, "*", wildcard.allowOrigin(""))
}

func TestLogging_KeepsStatus(t *testing.T) {
	h := NewLogging(newTestLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
