package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// SnapshotStore keeps the latest warm-start image of the memory backend
type SnapshotStore struct {
	rdb *Client
	key string
}

func NewSnapshotStore(rdb *Client, prefix, instanceID string) *SnapshotStore {
	if instanceID == "" {
		instanceID = "default"
	}
	return &SnapshotStore{rdb: rdb, key: prefix + "snapshot:" + instanceID}
}

func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return nil
}

// Load ok=false when no snapshot was saved yet
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}
	return data, true, nil
}
