package dedupe

import "context"

// General contract of event deduping (redis, in-memory)
type Deduper interface {
	// if alreadySeen=true -> duplicate, event processing can be skipped
	Seen(ctx context.Context, id string) (alreadySeen bool, err error)
	// Forget releases an id marked by Seen whose event was not applied, so a redelivery is processed
	Forget(ctx context.Context, id string) error
}
