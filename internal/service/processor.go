package service

import (
	"context"
	"errors"
	"fmt"

	"dexstats/internal/config"
	"dexstats/internal/domain"
	"dexstats/internal/stores"
	"dexstats/internal/tokenmeta"

	"gitlab.com/nevasik7/alerting/logger"
)

var (
	// ErrMissingEntity a snapshot the event requires is absent; the event is not applied
	ErrMissingEntity = errors.New("missing entity")
	// ErrDecimalsUnresolved a new token has no decimals; the PoolCreated is abandoned
	ErrDecimalsUnresolved = errors.New("token decimals unresolved")
	ErrUnknownChain       = errors.New("unknown chain")
	ErrInvalidEvent       = errors.New("invalid event")
)

const watermarkID = "position"

// Result outcome of one applied event. Entity pointers are the committed snapshots
type Result struct {
	Event   *domain.Event
	Skipped bool
	Reason  string

	Pool   *domain.Pool
	Tokens []*domain.Token
	Bundle *domain.Bundle

	Mint    *domain.Mint
	Burn    *domain.Burn
	Collect *domain.Collect
	Swap    *domain.Swap

	Writes []stores.Write
}

// Processor applies events to entity snapshots, one stores.Tx per event.
// Callers serialize events of one chain; different chains may run concurrently
type Processor struct {
	log      logger.Logger
	chains   config.ChainTable
	backend  stores.Backend
	resolver *tokenmeta.Resolver
}

func NewProcessor(log logger.Logger, chains config.ChainTable, backend stores.Backend, resolver *tokenmeta.Resolver) *Processor {
	return &Processor{
		log:      log,
		chains:   chains,
		backend:  backend,
		resolver: resolver,
	}
}

// state of one event in flight
type state struct {
	tx    *stores.Tx
	chain *config.Chain
	ev    *domain.Event
	res   *Result
}

func (s *state) skip(reason string) {
	s.res.Skipped = true
	s.res.Reason = reason
}

func (s *state) graph() view {
	return view{tx: s.tx}
}

// Apply runs the transition of ev and commits every write, plus the chain
// watermark, in one step. Any error leaves the store untouched
func (p *Processor) Apply(ctx context.Context, ev *domain.Event) (*Result, error) {
	chain, ok := p.chains.Get(ev.ChainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, ev.ChainID)
	}
	if ev.Params == nil || ev.Params.Kind() != ev.Kind {
		return nil, fmt.Errorf("%w: %s has params of %T", ErrInvalidEvent, ev, ev.Params)
	}

	s := &state{
		tx:    stores.NewTx(p.backend, chain.ID),
		chain: chain,
		ev:    ev,
		res:   &Result{Event: ev},
	}

	// pool events of a pool that was never created here; PoolCreated runs the same check itself
	if ev.Kind != domain.KindPoolCreated && !chain.Indexed(ev.SrcAddress) {
		s.skip("pool not indexed")
		p.log.Debugf("Skip %s: %s", ev, s.res.Reason)
		return s.res, nil
	}

	var err error
	switch params := ev.Params.(type) {
	case domain.PoolCreatedParams:
		err = p.poolCreated(ctx, s, params)
	case domain.InitializeParams:
		err = p.initialize(ctx, s, params)
	case domain.MintParams:
		err = p.mint(ctx, s, params)
	case domain.BurnParams:
		err = p.burn(ctx, s, params)
	case domain.CollectParams:
		err = p.collect(ctx, s, params)
	case domain.SwapParams:
		err = p.swap(ctx, s, params)
	default:
		err = fmt.Errorf("%w: unsupported params %T", ErrInvalidEvent, params)
	}

	if errors.Is(err, ErrDecimalsUnresolved) {
		p.log.Warnf("Abandon %s: %v", ev, err)
		return &Result{Event: ev, Skipped: true, Reason: "decimals unresolved"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", ev, err)
	}
	if s.res.Skipped {
		p.log.Debugf("Skip %s: %s", ev, s.res.Reason)
		return s.res, nil
	}

	pos := ev.Position()
	if err = stores.Put(s.tx, domain.EntityWatermark, watermarkID, &pos); err != nil {
		return nil, fmt.Errorf("apply %s: %w", ev, err)
	}

	s.res.Writes = s.tx.Writes()
	if err = s.tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("apply %s: %w", ev, err)
	}
	return s.res, nil
}

// Watermark position of the last committed event of the chain
func (p *Processor) Watermark(ctx context.Context, chainID uint64) (domain.Position, bool, error) {
	pos, ok, err := stores.Get[domain.Position](ctx, p.backend, stores.NewKey(chainID, domain.EntityWatermark, watermarkID))
	if err != nil || !ok {
		return domain.Position{}, false, err
	}
	return *pos, true, nil
}

// Chains configured chain ids
func (p *Processor) Chains() []uint64 {
	out := make([]uint64, 0, len(p.chains))
	for id := range p.chains {
		out = append(out, id)
	}
	return out
}

// Chain settings of one configured chain
func (p *Processor) Chain(chainID uint64) (*config.Chain, bool) {
	return p.chains.Get(chainID)
}

// Backend the committed store; readers must not write through it
func (p *Processor) Backend() stores.Backend {
	return p.backend
}
