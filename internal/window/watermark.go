package window

import (
	"errors"
	"fmt"
	"sync"

	"dexstats/internal/domain"
)

// event at or before the last applied position of its chain
var ErrOutOfOrder = errors.New("event at or before watermark")

// Watermark last applied (block, logIndex) per chain; only moves forward
type Watermark struct {
	mu  sync.RWMutex
	pos map[uint64]domain.Position
}

func NewWatermark() *Watermark {
	return &Watermark{pos: make(map[uint64]domain.Position, 4)}
}

// Check nil when p strictly follows the chain watermark (or the chain has none yet)
func (w *Watermark) Check(chainID uint64, p domain.Position) error {
	w.mu.RLock()
	cur, ok := w.pos[chainID]
	w.mu.RUnlock()

	if ok && !p.After(cur) {
		return fmt.Errorf("%w: chain %d event %d/%d, applied up to %d/%d",
			ErrOutOfOrder, chainID, p.Block, p.LogIndex, cur.Block, cur.LogIndex)
	}
	return nil
}

func (w *Watermark) Advance(chainID uint64, p domain.Position) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cur, ok := w.pos[chainID]; !ok || p.After(cur) {
		w.pos[chainID] = p
	}
}

func (w *Watermark) Current(chainID uint64) (domain.Position, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.pos[chainID]
	return p, ok
}
