package http

import (
	"compress/gzip"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dexstats/internal/api/http/handlers"
	"dexstats/internal/api/http/mw"
	"dexstats/internal/config"
	"dexstats/internal/dedupe"
	"dexstats/internal/domain"
	"dexstats/internal/metrics"
	natspub "dexstats/internal/pubsub/nats"
	"dexstats/internal/security"
	"dexstats/internal/service"
	"dexstats/internal/stores"
	"dexstats/internal/tokenmeta"
	"dexstats/internal/window"

	"github.com/golang-jwt/jwt/v5"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

const (
	factory = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	usdc    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	refPool = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"
)

func newTestLogger() logger.Logger {
	return logger.New(lgcfg.LoggerCfg{Level: "error", Format: "json"})
}

type apiFixture struct {
	agg    *service.AggregatorService
	router http.Handler
	key    *rsa.PrivateKey
}

// newAPIFixture serves a real aggregator over the in-memory store, NATS broadcasting included
func newAPIFixture(t *testing.T, withJWT bool) *apiFixture {
	t.Helper()
	log := newTestLogger()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	ns := natsserver.RunServer(&opts)
	t.Cleanup(ns.Shutdown)
	nc, err := natspub.New(log, &config.NATSConfig{URL: ns.ClientURL(), Name: "api-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = nc.Close() })

	chains, err := config.NewChainTable([]config.ChainConfig{{
		ChainID:                            1,
		Name:                               "mainnet",
		FactoryAddress:                     factory,
		StablecoinWrappedNativePoolAddress: refPool,
		StablecoinIsToken0:                 true,
		WrappedNativeAddress:               weth,
		StablecoinAddresses:                []string{usdc},
		MinimumNativeLocked:                "1",
		WhitelistTokens:                    []string{usdc, weth},
		TokenOverrides: []config.TokenOverrideConfig{
			{Address: usdc, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			{Address: weth, Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
		},
	}})
	require.NoError(t, err)

	d := dedupe.NewInMemoryDedupe(log, time.Hour, 0)
	t.Cleanup(d.Close)

	reg := prometheus.NewRegistry()
	proc := service.NewProcessor(log, chains, stores.NewMemory(), tokenmeta.NewResolver(log, nil, 0))
	agg := service.NewAggregatorService(log, proc, window.NewWatermark(), d, nc, nil, metrics.NewMetrics(reg, "test"), "dexstats")

	f := &apiFixture{agg: agg}

	var jwtMW *mw.JWTMiddleware
	if withJWT {
		f.key, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		jwtMW, err = mw.NewJWTMiddleware(&security.RS256Verifier{PubKey: &f.key.PublicKey, Aud: "dexstats-api", Iss: "dexstats"})
		require.NoError(t, err)
	}

	f.router = BuildRouter(
		handlers.NewHandler(log, agg),
		reg,
		mw.NewLogging(log),
		mw.NewGzip(0, log),
		nil,
		jwtMW,
		mw.NewCORS(&config.CORSConfig{Enabled: true}),
	)
	return f
}

func (f *apiFixture) token(t *testing.T, chains ...uint64) string {
	t.Helper()
	now := time.Now()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "reader",
			Audience:  jwt.ClaimStrings{"dexstats-api"},
			Issuer:    "dexstats",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Chains: chains,
	}).SignedString(f.key)
	require.NoError(t, err)
	return s
}

func (f *apiFixture) get(path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createPool(t *testing.T) {
	t.Helper()
	err := f.agg.ProcessEvent(context.Background(), &domain.Event{
		ChainID:         1,
		SrcAddress:      factory,
		BlockNumber:     12369621,
		BlockTimestamp:  1620156420,
		TransactionHash: "0x125e0b641d4a4b08806bf52c0c6757648c9963bcda8681e4f996f09e00d4c2cc",
		TransactionFrom: "0x6c9fc64a53c1b71fb3f9af64d1ae3a4931a5f4e9",
		LogIndex:        12,
		Kind:            domain.KindPoolCreated,
		Params:          domain.PoolCreatedParams{Token0: usdc, Token1: weth, Fee: big.NewInt(500), Pool: refPool},
	})
	require.NoError(t, err)
}

func data(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, "ok", env.Status)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestRouter_ReadsCommittedState(t *testing.T) {
	f := newAPIFixture(t, false)
	f.createPool(t)

	rec := f.get("/api/chains/1/pools/"+refPool, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pool domain.Pool
	data(t, rec, &pool)
	assert.Equal(t, usdc, pool.Token0)
	assert.Equal(t, "500", pool.FeeTier.String())

	rec = f.get("/api/chains/1/tokens/"+weth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var token domain.Token
	data(t, rec, &token)
	assert.Equal(t, "WETH", token.Symbol)

	rec = f.get("/api/chains/1/factory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fac domain.Factory
	data(t, rec, &fac)
	assert.Equal(t, "1", fac.PoolCount.String())

	rec = f.get("/api/chains/1/watermark", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"block":12369621`)

	assert.Equal(t, http.StatusNotFound, f.get("/api/chains/1/pools/"+refPool+"/ticks/0", "").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/chains/137/bundle", "").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/chains/1/uniswap/day/1620156420", "").Code, "no swap yet")
}

func TestRouter_TechEndpoints(t *testing.T) {
	f := newAPIFixture(t, true)
	f.createPool(t)

	assert.Equal(t, http.StatusOK, f.get("/healthz", "").Code)

	rec := f.get("/readiness", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_events_applied_total{chain="1",kind="PoolCreated"} 1`)
}

func TestRouter_JWTScopesChains(t *testing.T) {
	f := newAPIFixture(t, true)
	f.createPool(t)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/chains/1/bundle", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/api/chains/1/bundle", f.token(t)).Code)
	assert.Equal(t, http.StatusOK, f.get("/api/chains/1/bundle", f.token(t, 1)).Code)

	rec := f.get("/api/chains/1/bundle", f.token(t, 10))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestRouter_GzipOnAPI(t *testing.T) {
	f := newAPIFixture(t, false)
	f.createPool(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chains/1/pools/"+refPool, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), refPool)
}

func TestServer_StartShutdown(t *testing.T) {
	f := newAPIFixture(t, false)
	srv := NewServer(newTestLogger(), &config.HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, f.router)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Start may still be binding; Shutdown before Serve makes Serve return ErrServerClosed too
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
