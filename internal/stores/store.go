// Package stores entity persistence: a byte-level Backend (memory, redis) and the
// per-event Tx overlay that buffers writes until a single atomic Commit.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"dexstats/internal/domain"
)

var ErrTxClosed = errors.New("tx already committed")

// Key of one entity snapshot, partitioned by chain
type Key struct {
	ChainID uint64
	Kind    domain.EntityKind
	ID      string
}

func NewKey(chainID uint64, kind domain.EntityKind, id string) Key {
	return Key{ChainID: chainID, Kind: kind, ID: id}
}

// String "<chain>:<kind>:<id>"
func (k Key) String() string {
	return strconv.FormatUint(k.ChainID, 10) + ":" + string(k.Kind) + ":" + k.ID
}

type Write struct {
	Key   Key
	Value []byte
}

// Backend raw snapshot storage. Commit applies every write or none
type Backend interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Commit(ctx context.Context, writes []Write) error
}

// Get decodes one snapshot straight from a backend, bypassing any overlay
func Get[T any](ctx context.Context, b Backend, key Key) (*T, bool, error) {
	raw, ok, err := b.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	var v T
	if err = json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, true, nil
}
