package stores

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"dexstats/internal/domain"
)

// Memory single-instance backend. Snapshot/Restore give a warm start after restart
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[Key][]byte, 4096)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Commit(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		m.data[w.Key] = w.Value
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

const snapshotVersion = 1

// Serializable image of the whole backend
type Snapshot struct {
	Version int
	TakenAt time.Time
	Entries []snapshotEntry
}

type snapshotEntry struct {
	ChainID uint64
	Kind    string
	ID      string
	Value   []byte
}

// Snapshot gob-encodes every entry
func (m *Memory) Snapshot(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	snap := Snapshot{
		Version: snapshotVersion,
		TakenAt: time.Now().UTC(),
		Entries: make([]snapshotEntry, 0, len(m.data)),
	}
	for k, v := range m.data {
		snap.Entries = append(snap.Entries, snapshotEntry{
			ChainID: k.ChainID,
			Kind:    string(k.Kind),
			ID:      k.ID,
			Value:   v,
		})
	}
	m.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the whole content with a snapshot
func (m *Memory) Restore(_ context.Context, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty snapshot data")
	}

	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}

	state := make(map[Key][]byte, len(snap.Entries))
	for _, e := range snap.Entries {
		state[NewKey(e.ChainID, domain.EntityKind(e.Kind), e.ID)] = e.Value
	}

	m.mu.Lock()
	m.data = state
	m.mu.Unlock()
	return nil
}
