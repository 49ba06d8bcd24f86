package redis

import (
	"context"
	"errors"
	"fmt"

	"dexstats/internal/stores"

	goredis "github.com/redis/go-redis/v9"
)

var _ stores.Backend = (*EntityStore)(nil)

// EntityStore one string key per entity snapshot; a commit is a MULTI/EXEC block
type EntityStore struct {
	rdb    *Client
	prefix string
}

// prefix example "dexstats:"
func NewEntityStore(rdb *Client, prefix string) (*EntityStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required to the entity store")
	}
	if prefix == "" {
		prefix = "dexstats:"
	}
	return &EntityStore{rdb: rdb, prefix: prefix + "e:"}, nil
}

func (s *EntityStore) key(k stores.Key) string {
	return s.prefix + k.String()
}

func (s *EntityStore) Get(ctx context.Context, k stores.Key) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", k, err)
	}
	return v, true, nil
}

func (s *EntityStore) Commit(ctx context.Context, writes []stores.Write) error {
	if len(writes) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, w := range writes {
			p.Set(ctx, s.key(w.Key), w.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi/exec of %d writes: %w", len(writes), err)
	}
	return nil
}
