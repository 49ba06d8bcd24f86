package pubsub

import (
	"context"
	"strconv"
	"strings"
)

type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}

// Patch fresh snapshot of one entity after a committed event
type Patch struct {
	Topic   string      `json:"-"`
	ChainID uint64      `json:"chain_id"`
	Entity  string      `json:"entity"`
	ID      string      `json:"id"`
	Block   uint64      `json:"block"`
	Data    interface{} `json:"data"`
}

// Topic "<prefix>.<chain>.<entity>.<id>"
func Topic(prefix string, chainID uint64, entity, id string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(entity) + len(id) + 24)
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('.')
	}
	b.WriteString(strconv.FormatUint(chainID, 10))
	b.WriteByte('.')
	b.WriteString(entity)
	b.WriteByte('.')
	b.WriteString(id)
	return b.String()
}
