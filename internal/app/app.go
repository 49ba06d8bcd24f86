package app

import (
	"context"
	"errors"
	"net/http"

	"gitlab.com/nevasik7/alerting/logger"
)

type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Ingest the NATS subscription feeding the dispatcher
type Ingest interface {
	Start(ctx context.Context) error
	Stop() error
}

// Lanes the per-chain dispatcher
type Lanes interface {
	Close(ctx context.Context) error
}

// App runs the long-lived components. Start order is snapshots, HTTP, ingest;
// shutdown reverses it so every queued event is applied before the last snapshot
type App struct {
	log       logger.Logger
	httpSrv   HTTPServer
	ingest    Ingest
	lanes     Lanes
	snapshots *Snapshotter // nil when the backend is not the memory store

	errCh chan error
}

func New(log logger.Logger, httpSrv HTTPServer, ingest Ingest, lanes Lanes, snapshots *Snapshotter) *App {
	return &App{
		log:       log,
		httpSrv:   httpSrv,
		ingest:    ingest,
		lanes:     lanes,
		snapshots: snapshots,
		errCh:     make(chan error, 1),
	}
}

func (a *App) Start(ctx context.Context) error {
	a.log.Debug("App started begin...")

	if a.snapshots != nil {
		a.snapshots.Start()
	}

	go func() {
		if err := a.httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case a.errCh <- err:
			default:
			}
		}
	}()

	if err := a.ingest.Start(ctx); err != nil {
		return err
	}

	a.log.Info("App started")
	return nil
}

// Errors reports a component that stopped on its own
func (a *App) Errors() <-chan error {
	return a.errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Debug("App stopped begin...")

	var errs []error
	if err := a.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.ingest.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.lanes.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.snapshots != nil {
		if err := a.snapshots.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.log.Info("App stopped")
	return nil
}
