package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dexstats/internal/domain"

	"gitlab.com/nevasik7/alerting/logger"
)

var (
	ErrLaneHalted       = errors.New("chain lane halted")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// Handler applies one event; an error is fatal for the event's chain
type Handler interface {
	ProcessEvent(ctx context.Context, ev *domain.Event) error
}

// lane one goroutine per chain keeps events of that chain strictly serial
type lane struct {
	chainID uint64
	ch      chan *domain.Event

	mu  sync.RWMutex
	err error
}

func (l *lane) halted() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Dispatcher fans events out to per-chain lanes. Chains run concurrently; a failed event
// halts its lane and later events of that chain are refused until restart
type Dispatcher struct {
	log     logger.Logger
	handler Handler
	buffer  int

	mu     sync.Mutex
	lanes  map[uint64]*lane
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup

	// handed to the handler; cancelled only when Close runs out of time
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(log logger.Logger, handler Handler, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		log:     log,
		handler: handler,
		buffer:  buffer,
		lanes:   make(map[uint64]*lane, 4),
		stop:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit queues ev on its chain lane, blocking while the lane is full
func (d *Dispatcher) Submit(ctx context.Context, ev *domain.Event) error {
	l, err := d.lane(ev.ChainID)
	if err != nil {
		return err
	}
	if err = l.halted(); err != nil {
		return fmt.Errorf("%w: chain %d: %v", ErrLaneHalted, ev.ChainID, err)
	}

	select {
	case l.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stop:
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) lane(chainID uint64) (*lane, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}
	if l, ok := d.lanes[chainID]; ok {
		return l, nil
	}

	l := &lane{chainID: chainID, ch: make(chan *domain.Event, d.buffer)}
	d.lanes[chainID] = l

	d.wg.Add(1)
	go d.run(l)

	d.log.Infof("Started lane for chain %d", chainID)
	return l, nil
}

func (d *Dispatcher) run(l *lane) {
	defer d.wg.Done()

	for {
		select {
		case ev := <-l.ch:
			d.handle(l, ev)
		case <-d.stop:
			// drain what was queued before Close
			for {
				select {
				case ev := <-l.ch:
					d.handle(l, ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(l *lane, ev *domain.Event) {
	if l.halted() != nil || d.ctx.Err() != nil {
		return
	}
	if err := d.handler.ProcessEvent(d.ctx, ev); err != nil {
		if d.ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		d.log.Errorf("Chain %d halted at %s: %v", l.chainID, ev, err)
	}
}

// Err the error that halted the chain lane, nil while it runs
func (d *Dispatcher) Err(chainID uint64) error {
	d.mu.Lock()
	l, ok := d.lanes[chainID]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return l.halted()
}

// Pending queued events of the chain
func (d *Dispatcher) Pending(chainID uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.lanes[chainID]; ok {
		return len(l.ch)
	}
	return 0
}

// Close stops accepting events, drains what is queued and waits for every lane.
// When ctx expires first the in-flight handlers are cancelled
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.stop)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	defer d.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
