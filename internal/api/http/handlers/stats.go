package handlers

import (
	"context"
	"errors"
	"net/http"

	"dexstats/internal/api/http/mw"
	"dexstats/internal/domain"
	"dexstats/internal/service"
	"dexstats/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// Service read side of the aggregator
type Service interface {
	CheckDependency(ctx context.Context) error

	GetFactory(ctx context.Context, chainID uint64) (*domain.Factory, error)
	GetBundle(ctx context.Context, chainID uint64) (*domain.Bundle, error)
	GetPool(ctx context.Context, chainID uint64, id string) (*domain.Pool, error)
	GetToken(ctx context.Context, chainID uint64, id string) (*domain.Token, error)
	GetTick(ctx context.Context, chainID uint64, pool string, idx int64) (*domain.Tick, error)
	GetPoolDayData(ctx context.Context, chainID uint64, pool string, ts int64) (*domain.PoolDayData, error)
	GetPoolHourData(ctx context.Context, chainID uint64, pool string, ts int64) (*domain.PoolHourData, error)
	GetTokenDayData(ctx context.Context, chainID uint64, token string, ts int64) (*domain.TokenDayData, error)
	GetTokenHourData(ctx context.Context, chainID uint64, token string, ts int64) (*domain.TokenHourData, error)
	GetUniswapDayData(ctx context.Context, chainID uint64, ts int64) (*domain.UniswapDayData, error)
	GetSwap(ctx context.Context, chainID uint64, id string) (*domain.Swap, error)
	Watermark(chainID uint64) (domain.Position, bool)
}

func (a *Handler) Factory(w http.ResponseWriter, r *http.Request) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetFactory(r.Context(), chainID)
	respond(a, w, r, v, err)
}

func (a *Handler) Bundle(w http.ResponseWriter, r *http.Request) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetBundle(r.Context(), chainID)
	respond(a, w, r, v, err)
}

func (a *Handler) Pool(w http.ResponseWriter, r *http.Request) {
	chainID, id, ok := a.chainAndAddress(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetPool(r.Context(), chainID, id)
	respond(a, w, r, v, err)
}

func (a *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	chainID, id, ok := a.chainAndAddress(w, r)
	if !ok {
		return
	}
	idx, ok := a.intParam(w, r, "tick")
	if !ok {
		return
	}
	v, err := a.AggService.GetTick(r.Context(), chainID, id, idx)
	respond(a, w, r, v, err)
}

func (a *Handler) PoolDay(w http.ResponseWriter, r *http.Request) {
	chainID, id, ts, ok := a.bucketParams(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetPoolDayData(r.Context(), chainID, id, ts)
	respond(a, w, r, v, err)
}

func (a *Handler) PoolHour(w http.ResponseWriter, r *http.Request) {
	chainID, id, ts, ok := a.bucketParams(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetPoolHourData(r.Context(), chainID, id, ts)
	respond(a, w, r, v, err)
}

func (a *Handler) Token(w http.ResponseWriter, r *http.Request) {
	chainID, id, ok := a.chainAndAddress(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetToken(r.Context(), chainID, id)
	respond(a, w, r, v, err)
}

func (a *Handler) TokenDay(w http.ResponseWriter, r *http.Request) {
	chainID, id, ts, ok := a.bucketParams(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetTokenDayData(r.Context(), chainID, id, ts)
	respond(a, w, r, v, err)
}

func (a *Handler) TokenHour(w http.ResponseWriter, r *http.Request) {
	chainID, id, ts, ok := a.bucketParams(w, r)
	if !ok {
		return
	}
	v, err := a.AggService.GetTokenHourData(r.Context(), chainID, id, ts)
	respond(a, w, r, v, err)
}

func (a *Handler) UniswapDay(w http.ResponseWriter, r *http.Request) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return
	}
	ts, ok := a.intParam(w, r, "ts")
	if !ok {
		return
	}
	v, err := a.AggService.GetUniswapDayData(r.Context(), chainID, ts)
	respond(a, w, r, v, err)
}

func (a *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	v, err := a.AggService.GetSwap(r.Context(), chainID, id.String())
	respond(a, w, r, v, err)
}

// Watermark position of the last event applied on the chain
func (a *Handler) Watermark(w http.ResponseWriter, r *http.Request) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return
	}
	pos, ok := a.AggService.Watermark(chainID)
	if !ok {
		a.writeError(w, r, http.StatusNotFound, "not_found", "no event applied on this chain yet")
		return
	}
	a.write(w, r, map[string]any{
		"chain_id":  chainID,
		"block":     pos.Block,
		"log_index": pos.LogIndex,
	})
}

// ----- helpers -----

func respond[T any](a *Handler, w http.ResponseWriter, r *http.Request, v *T, err error) {
	switch {
	case err == nil:
		a.write(w, r, v)
	case errors.Is(err, service.ErrNotFound):
		a.writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrUnknownChain):
		a.writeError(w, r, http.StatusNotFound, "unknown_chain", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.writeError(w, r, http.StatusServiceUnavailable, "timeout", "request cancelled")
	default:
		a.Log.Errorf("Read %s failed: %v", r.URL.Path, err)
		a.writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *Handler) write(w http.ResponseWriter, r *http.Request, body any) {
	if err := httputil.JSON(w, http.StatusOK, body, nil); err != nil {
		a.Log.Errorf("Write %s response: %v", r.URL.Path, err)
	}
}

func (a *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if err := httputil.Error(w, r, status, code, msg, nil); err != nil {
		a.Log.Errorf("Write %s error response: %v", r.URL.Path, err)
	}
}

// chain parses {chain} and checks the bearer may read it
func (a *Handler) chain(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	chainID, err := httputil.URLUint(r, "chain")
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return 0, false
	}
	if !mw.ClaimsFromContext(r.Context()).AllowsChain(chainID) {
		a.writeError(w, r, http.StatusForbidden, "forbidden", "token does not grant this chain")
		return 0, false
	}
	return chainID, true
}

func (a *Handler) chainAndAddress(w http.ResponseWriter, r *http.Request) (uint64, string, bool) {
	chainID, ok := a.chain(w, r)
	if !ok {
		return 0, "", false
	}
	id, ok := domain.NormalizeAddress(chi.URLParam(r, "id"))
	if !ok {
		a.writeError(w, r, http.StatusBadRequest, "bad_request", "invalid address")
		return 0, "", false
	}
	return chainID, id, true
}

func (a *Handler) bucketParams(w http.ResponseWriter, r *http.Request) (uint64, string, int64, bool) {
	chainID, id, ok := a.chainAndAddress(w, r)
	if !ok {
		return 0, "", 0, false
	}
	ts, ok := a.intParam(w, r, "ts")
	if !ok {
		return 0, "", 0, false
	}
	return chainID, id, ts, true
}

func (a *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := httputil.URLInt(r, name)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return 0, false
	}
	return v, true
}
