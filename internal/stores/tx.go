package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dexstats/internal/domain"
)

// Tx write overlay of one event on one chain.
// Reads see the overlay first, then the backend; reads are safe for concurrent use.
// Nothing reaches the backend before Commit; dropping the Tx discards every write
type Tx struct {
	backend Backend
	chainID uint64

	mu     sync.RWMutex
	writes map[Key][]byte
	order  []Key
	done   bool
}

func NewTx(b Backend, chainID uint64) *Tx {
	return &Tx{
		backend: b,
		chainID: chainID,
		writes:  make(map[Key][]byte, 16),
	}
}

func (t *Tx) ChainID() uint64 { return t.chainID }

func (t *Tx) get(ctx context.Context, kind domain.EntityKind, id string) ([]byte, bool, error) {
	key := NewKey(t.chainID, kind, id)

	t.mu.RLock()
	raw, ok := t.writes[key]
	t.mu.RUnlock()
	if ok {
		return raw, true, nil
	}

	return t.backend.Get(ctx, key)
}

func (t *Tx) put(kind domain.EntityKind, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	key := NewKey(t.chainID, kind, id)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxClosed
	}
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = raw
	return nil
}

// Load returns a private copy of the snapshot; mutating it never affects the store
func Load[T any](ctx context.Context, t *Tx, kind domain.EntityKind, id string) (*T, bool, error) {
	raw, ok, err := t.get(ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var v T
	if err = json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return &v, true, nil
}

// Put full-snapshot replace, buffered until Commit
func Put[T any](t *Tx, kind domain.EntityKind, id string, v *T) error {
	return t.put(kind, id, v)
}

// Writes buffered writes in first-write order
func (t *Tx) Writes() []Write {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Write{Key: k, Value: t.writes[k]})
	}
	return out
}

// Commit hands every buffered write to the backend in one atomic step. A Tx commits once
func (t *Tx) Commit(ctx context.Context) error {
	writes := t.Writes()

	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxClosed
	}
	t.done = true
	t.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}
	if err := t.backend.Commit(ctx, writes); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(writes), err)
	}
	return nil
}
