package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

// imageSource the memory backend
type imageSource interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, data []byte) error
	Len() int
}

// imageStore where the image is kept, redis in production
type imageStore interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, bool, error)
}

// Snapshotter periodically saves the memory backend so a restart resumes from the
// last image instead of replaying the chain. The committed watermark travels inside the image
type Snapshotter struct {
	log      logger.Logger
	src      imageSource
	store    imageStore
	interval time.Duration

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewSnapshotter(log logger.Logger, src imageSource, store imageStore, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		log:      log,
		src:      src,
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Restore loads the last image; false when none was saved yet
func (s *Snapshotter) Restore(ctx context.Context) (bool, error) {
	data, ok, err := s.store.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err = s.src.Restore(ctx, data); err != nil {
		return false, err
	}
	s.log.Infof("Restored %d entities from snapshot (%d bytes)", s.src.Len(), len(data))
	return true, nil
}

func (s *Snapshotter) Save(ctx context.Context) error {
	data, err := s.src.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err = s.store.Save(ctx, data); err != nil {
		return err
	}
	s.log.Debugf("Snapshot saved, %d bytes", len(data))
	return nil
}

// Start runs the periodic save loop
func (s *Snapshotter) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)

		t := time.NewTicker(s.interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				if err := s.Save(ctx); err != nil {
					s.log.Errorf("Periodic snapshot failed: %v", err)
				}
				cancel()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the loop and writes a final image
func (s *Snapshotter) Stop(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		if s.started.Load() {
			select {
			case <-s.done:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		err = s.Save(ctx)
	})
	return err
}
