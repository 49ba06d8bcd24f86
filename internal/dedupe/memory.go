package dedupe

import (
	"context"
	"sync"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

// MemoryDedupe single-instance deduper, state is lost on restart. After a restart the
// chain watermark still rejects every event at or before the last committed one
type MemoryDedupe struct {
	log logger.Logger
	ttl time.Duration

	mu      sync.RWMutex
	items   map[string]int64 // id -> expiry, unix nano
	stopCh  chan struct{}
	stopped bool
}

// NewInMemoryDedupe ttl how long an id is remembered; janitorEvery how often expired ids
// are swept, 0 disables the sweeper and expired ids are only replaced on the next Seen
func NewInMemoryDedupe(log logger.Logger, ttl, janitorEvery time.Duration) *MemoryDedupe {
	m := &MemoryDedupe{
		log:    log,
		ttl:    ttl,
		items:  make(map[string]int64, 1024),
		stopCh: make(chan struct{}),
	}

	if janitorEvery > 0 {
		go m.janitor(janitorEvery)
	}

	return m
}

func (m *MemoryDedupe) Seen(_ context.Context, id string) (bool, error) {
	now := time.Now().UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.items[id]; ok && exp > now {
		return true, nil
	}
	m.items[id] = now + m.ttl.Nanoseconds()

	return false, nil
}

func (m *MemoryDedupe) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryDedupe) Health(context.Context) error {
	return nil
}

// Len ids currently remembered, expired ones included until the janitor runs
func (m *MemoryDedupe) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryDedupe) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *MemoryDedupe) sweep() {
	now := time.Now().UnixNano()

	m.mu.Lock()
	removed := 0
	for id, exp := range m.items {
		if exp <= now {
			delete(m.items, id)
			removed++
		}
	}
	left := len(m.items)
	m.mu.Unlock()

	if removed > 0 {
		m.log.Debugf("Dedupe janitor removed %d expired ids, %d left", removed, left)
	}
}

// Close stops the janitor, if running
func (m *MemoryDedupe) Close() {
	m.mu.Lock()
	if !m.stopped {
		close(m.stopCh)
		m.stopped = true
	}
	m.mu.Unlock()
}
