package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"dexstats/internal/service"
	"dexstats/pkg/httputil"

	"gitlab.com/nevasik7/alerting/logger"
)

const readinessTimeout = 5 * time.Second

type Handler struct {
	Log        logger.Logger
	AggService Service
}

func NewHandler(log logger.Logger, aggService Service) *Handler {
	if aggService == nil {
		panic("aggregate service cannot be nil")
	}

	return &Handler{Log: log, AggService: aggService}
}

func (a *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]any{}, nil); err != nil {
		a.Log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Readiness checks the store, deduper, ClickHouse sink and NATS
func (a *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := a.AggService.CheckDependency(ctx); err != nil {
		failed := []string{"unknown"}
		var depErr *service.DependencyError
		if errors.As(err, &depErr) {
			failed = depErr.Names()
		}
		a.Log.Warnf("Not ready, unhealthy: %s: %v", strings.Join(failed, ","), err)

		err = httputil.Error(w, r, http.StatusServiceUnavailable, "dependencies_unhealthy", "dependencies check failed", map[string]any{
			"failed": failed,
			"error":  err.Error(),
		})
		if err != nil {
			a.Log.Errorf("Write readiness response: %v", err)
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]string{"dependencies": "healthy"}, nil); err != nil {
		a.Log.Errorf("Write readiness response: %v", err)
	}
}
