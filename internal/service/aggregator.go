package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dexstats/internal/dedupe"
	"dexstats/internal/domain"
	"dexstats/internal/metrics"
	"dexstats/internal/pubsub"
	"dexstats/internal/stores"
	"dexstats/internal/stores/clickhouse"
	"dexstats/internal/window"

	"gitlab.com/nevasik7/alerting/logger"
)

var (
	ErrNotFound = errors.New("entity not found")
)

// RecordSink long-term storage of immutable event records
type RecordSink interface {
	Enqueue(ctx context.Context, rows ...clickhouse.PoolEventRow) error
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// Encapsulates the business logic of handling pool events;
// the only orchestration point: dedupe → watermark → apply/commit → broadcast → clickhouse.
// Sink and metrics are optional
type AggregatorService struct {
	log         logger.Logger
	processor   *Processor
	watermark   *window.Watermark
	deduper     dedupe.Deduper
	broadcaster pubsub.Broadcaster
	sink        RecordSink
	metrics     *metrics.Metrics
	topicPrefix string
}

func NewAggregatorService(
	log logger.Logger,
	processor *Processor,
	watermark *window.Watermark,
	deduper dedupe.Deduper,
	broadcaster pubsub.Broadcaster,
	sink RecordSink,
	m *metrics.Metrics,
	topicPrefix string,
) *AggregatorService {
	return &AggregatorService{
		log:         log,
		processor:   processor,
		watermark:   watermark,
		deduper:     deduper,
		broadcaster: broadcaster,
		sink:        sink,
		metrics:     m,
		topicPrefix: topicPrefix,
	}
}

// RestoreWatermarks seeds the in-memory ordering guard from the committed store
func (a *AggregatorService) RestoreWatermarks(ctx context.Context) error {
	for _, chainID := range a.processor.Chains() {
		pos, ok, err := a.processor.Watermark(ctx, chainID)
		if err != nil {
			return fmt.Errorf("watermark of chain %d: %w", chainID, err)
		}
		if ok {
			a.watermark.Advance(chainID, pos)
			a.log.Infof("Chain %d resumes after block %d log %d", chainID, pos.Block, pos.LogIndex)
		}
	}
	return nil
}

// ProcessEvent applies one event. A returned error is fatal for the event: nothing was
// written and the caller should stop its chain lane
func (a *AggregatorService) ProcessEvent(ctx context.Context, ev *domain.Event) error {
	chain := strconv.FormatUint(ev.ChainID, 10)

	if err := a.watermark.Check(ev.ChainID, ev.Position()); err != nil {
		a.log.Debugf("Out of order event ignored: %v", err)
		a.skipped(chain, ev.Kind, "out_of_order")
		return nil
	}

	dedupeID := chain + ":" + ev.ID()
	isDup, err := a.deduper.Seen(ctx, dedupeID)
	if err != nil {
		a.failed(chain, "dedupe")
		return fmt.Errorf("dedup check failed for %s: %w", dedupeID, err)
	}
	if isDup {
		a.log.Debugf("Duplicate event ignored: %s", dedupeID)
		a.skipped(chain, ev.Kind, "duplicate")
		return nil
	}

	started := time.Now()
	res, err := a.processor.Apply(ctx, ev)
	if err != nil {
		a.failed(chain, "apply")
		if ferr := a.deduper.Forget(ctx, dedupeID); ferr != nil {
			a.log.Errorf("Failed to forget %s after failed apply: %v", dedupeID, ferr)
		}
		return err
	}

	a.watermark.Advance(ev.ChainID, ev.Position())

	if res.Skipped {
		a.skipped(chain, ev.Kind, strings.ReplaceAll(res.Reason, " ", "_"))
		return nil
	}
	a.observe(chain, ev, res, time.Since(started))

	// broadcast errors are not critical, subscribers catch up on the next patch
	for _, patch := range a.patches(res) {
		if err := a.broadcaster.Publish(ctx, patch.Topic, patch); err != nil {
			a.log.Errorf("Failed to broadcast patch for %s: %v", patch.Topic, err)
			a.failed(chain, "broadcast")
		}
	}

	// the entity store already holds the record; clickhouse is the analytical copy
	if a.sink != nil {
		if rows := recordRows(ev, res); len(rows) > 0 {
			if err := a.sink.Enqueue(ctx, rows...); err != nil {
				a.log.Errorf("ClickHouse enqueue failed for %s: %v", dedupeID, err)
				a.failed(chain, "clickhouse")
			}
		}
	}

	a.log.Debugf("Event processed successfully: %s (%d writes)", ev, len(res.Writes))
	return nil
}

func (a *AggregatorService) patches(res *Result) []pubsub.Patch {
	ev := res.Event
	out := make([]pubsub.Patch, 0, 4)
	add := func(entity domain.EntityKind, id string, data interface{}) {
		out = append(out, pubsub.Patch{
			Topic:   pubsub.Topic(a.topicPrefix, ev.ChainID, string(entity), id),
			ChainID: ev.ChainID,
			Entity:  string(entity),
			ID:      id,
			Block:   ev.BlockNumber,
			Data:    data,
		})
	}

	if res.Pool != nil {
		add(domain.EntityPool, res.Pool.ID, res.Pool)
	}
	for _, t := range res.Tokens {
		add(domain.EntityToken, t.ID, t)
	}
	if res.Bundle != nil {
		add(domain.EntityBundle, res.Bundle.ID, res.Bundle)
	}
	return out
}

func recordRows(ev *domain.Event, res *Result) []clickhouse.PoolEventRow {
	switch {
	case res.Mint != nil:
		return []clickhouse.PoolEventRow{clickhouse.MintRow(ev.ChainID, ev.BlockNumber, res.Mint)}
	case res.Burn != nil:
		return []clickhouse.PoolEventRow{clickhouse.BurnRow(ev.ChainID, ev.BlockNumber, res.Burn)}
	case res.Collect != nil:
		return []clickhouse.PoolEventRow{clickhouse.CollectRow(ev.ChainID, ev.BlockNumber, res.Collect)}
	case res.Swap != nil:
		return []clickhouse.PoolEventRow{clickhouse.SwapRow(ev.ChainID, ev.BlockNumber, res.Swap)}
	}
	return nil
}

func (a *AggregatorService) observe(chain string, ev *domain.Event, res *Result, took time.Duration) {
	if a.metrics == nil {
		return
	}
	kind := string(ev.Kind)
	a.metrics.EventsTotal.WithLabelValues(chain, kind).Inc()
	a.metrics.ApplyDuration.WithLabelValues(chain, kind).Observe(took.Seconds())
	a.metrics.WritesPerEvent.WithLabelValues(kind).Observe(float64(len(res.Writes)))
	a.metrics.LastAppliedBlock.WithLabelValues(chain).Set(float64(ev.BlockNumber))
	if res.Bundle != nil {
		a.metrics.EthPriceUSD.WithLabelValues(chain).Set(res.Bundle.EthPriceUSD.InexactFloat64())
	}
}

func (a *AggregatorService) skipped(chain string, kind domain.EventKind, reason string) {
	if a.metrics != nil {
		a.metrics.EventsSkipped.WithLabelValues(chain, string(kind), reason).Inc()
	}
}

func (a *AggregatorService) failed(chain, stage string) {
	if a.metrics != nil {
		a.metrics.ErrorsTotal.WithLabelValues(chain, stage).Inc()
	}
}

// ----- read side, used by the HTTP API -----

func getEntity[T any](ctx context.Context, a *AggregatorService, chainID uint64, kind domain.EntityKind, id string) (*T, error) {
	if _, ok := a.processor.Chain(chainID); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	v, ok, err := stores.Get[T](ctx, a.processor.Backend(), stores.NewKey(chainID, kind, strings.ToLower(id)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return v, nil
}

func (a *AggregatorService) GetPool(ctx context.Context, chainID uint64, id string) (*domain.Pool, error) {
	return getEntity[domain.Pool](ctx, a, chainID, domain.EntityPool, id)
}

func (a *AggregatorService) GetToken(ctx context.Context, chainID uint64, id string) (*domain.Token, error) {
	return getEntity[domain.Token](ctx, a, chainID, domain.EntityToken, id)
}

func (a *AggregatorService) GetTick(ctx context.Context, chainID uint64, pool string, idx int64) (*domain.Tick, error) {
	return getEntity[domain.Tick](ctx, a, chainID, domain.EntityTick, domain.TickID(strings.ToLower(pool), idx))
}

// GetSwap swap record by "<tx_hash>-<log_index>"
func (a *AggregatorService) GetSwap(ctx context.Context, chainID uint64, id string) (*domain.Swap, error) {
	return getEntity[domain.Swap](ctx, a, chainID, domain.EntitySwap, id)
}

func (a *AggregatorService) GetFactory(ctx context.Context, chainID uint64) (*domain.Factory, error) {
	chain, ok := a.processor.Chain(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return getEntity[domain.Factory](ctx, a, chainID, domain.EntityFactory, chain.Factory)
}

func (a *AggregatorService) GetBundle(ctx context.Context, chainID uint64) (*domain.Bundle, error) {
	return getEntity[domain.Bundle](ctx, a, chainID, domain.EntityBundle, domain.BundleID(chainID))
}

func (a *AggregatorService) GetPoolDayData(ctx context.Context, chainID uint64, pool string, ts int64) (*domain.PoolDayData, error) {
	return getEntity[domain.PoolDayData](ctx, a, chainID, domain.EntityPoolDayData, window.BucketID(strings.ToLower(pool), window.DayIndex(ts)))
}

func (a *AggregatorService) GetPoolHourData(ctx context.Context, chainID uint64, pool string, ts int64) (*domain.PoolHourData, error) {
	return getEntity[domain.PoolHourData](ctx, a, chainID, domain.EntityPoolHourData, window.BucketID(strings.ToLower(pool), window.HourIndex(ts)))
}

func (a *AggregatorService) GetTokenDayData(ctx context.Context, chainID uint64, token string, ts int64) (*domain.TokenDayData, error) {
	return getEntity[domain.TokenDayData](ctx, a, chainID, domain.EntityTokenDayData, window.BucketID(strings.ToLower(token), window.DayIndex(ts)))
}

func (a *AggregatorService) GetTokenHourData(ctx context.Context, chainID uint64, token string, ts int64) (*domain.TokenHourData, error) {
	return getEntity[domain.TokenHourData](ctx, a, chainID, domain.EntityTokenHourData, window.BucketID(strings.ToLower(token), window.HourIndex(ts)))
}

func (a *AggregatorService) GetUniswapDayData(ctx context.Context, chainID uint64, ts int64) (*domain.UniswapDayData, error) {
	chain, ok := a.processor.Chain(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return getEntity[domain.UniswapDayData](ctx, a, chainID, domain.EntityUniswapDayData, window.BucketID(chain.Factory, window.DayIndex(ts)))
}

// Watermark last committed position of the chain, from memory
func (a *AggregatorService) Watermark(chainID uint64) (domain.Position, bool) {
	return a.watermark.Current(chainID)
}

// Dependency names reported by CheckDependency
const (
	DependencyDedupe      = "dedupe"
	DependencyEntityStore = "entity_store"
	DependencyClickHouse  = "clickhouse"
	DependencyNATS        = "nats"
)

// DependencyError every dependency that failed its health check, in check order
type DependencyError struct {
	Failed []DependencyFailure
}

type DependencyFailure struct {
	Name string
	Err  error
}

func (e *DependencyError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, f.Name+": "+f.Err.Error())
	}
	return "dependency check failed: " + strings.Join(parts, "; ")
}

// Names of the failed dependencies
func (e *DependencyError) Names() []string {
	out := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Name)
	}
	return out
}

// CheckDependency returns a *DependencyError naming every unhealthy dependency
func (a *AggregatorService) CheckDependency(ctx context.Context) error {
	depErr := &DependencyError{}
	check := func(name string, err error) {
		if err != nil {
			depErr.Failed = append(depErr.Failed, DependencyFailure{Name: name, Err: err})
		}
	}

	if h, ok := a.deduper.(healthChecker); ok {
		check(DependencyDedupe, h.Health(ctx))
	}
	if h, ok := a.processor.Backend().(healthChecker); ok {
		check(DependencyEntityStore, h.Health(ctx))
	}
	if h, ok := a.sink.(healthChecker); ok && a.sink != nil {
		check(DependencyClickHouse, h.Health(ctx))
	}
	if err := a.broadcaster.Health(ctx); err != nil {
		check(DependencyNATS, fmt.Errorf("connection not ready: %w", err))
	}

	if len(depErr.Failed) > 0 {
		return depErr
	}

	a.log.Debugf("All dependency check passed")
	return nil
}
