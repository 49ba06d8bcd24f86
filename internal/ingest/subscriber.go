package ingest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"dexstats/internal/config"
	"dexstats/internal/metrics"

	"github.com/nats-io/nats.go"
	"gitlab.com/nevasik7/alerting/logger"
)

// Source NATS subscription provider, implemented by the pubsub NATS client
type Source interface {
	Subscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Subscriber decodes events from NATS and hands them to the dispatcher.
// Messages that fail to decode are logged and dropped
type Subscriber struct {
	log        logger.Logger
	src        Source
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	subject    string
	queue      string

	mu  sync.Mutex
	sub *nats.Subscription
	ctx context.Context
}

func NewSubscriber(log logger.Logger, src Source, dispatcher *Dispatcher, m *metrics.Metrics, cfg *config.IngestConfig) (*Subscriber, error) {
	if src == nil {
		return nil, errors.New("nats source is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg == nil || cfg.Subject == "" {
		return nil, errors.New("ingest subject is required")
	}

	return &Subscriber{
		log:        log,
		src:        src,
		dispatcher: dispatcher,
		metrics:    m,
		subject:    cfg.Subject,
		queue:      cfg.Queue,
	}, nil
}

// Start subscribes; ctx bounds how long a message may wait for a full lane
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}
	s.ctx = ctx

	sub, err := s.src.Subscribe(s.subject, s.queue, s.onMessage)
	if err != nil {
		return err
	}
	s.sub = sub

	s.log.Infof("Subscribed to %s (queue=%q)", s.subject, s.queue)
	return nil
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	ev, err := Decode(msg.Data)
	if err != nil {
		s.log.Warnf("Drop message on %s: %v", msg.Subject, err)
		if s.metrics != nil {
			s.metrics.ErrorsTotal.WithLabelValues("unknown", "decode").Inc()
		}
		return
	}

	if err = s.dispatcher.Submit(s.ctx, ev); err != nil {
		s.log.Errorf("Event %s not dispatched: %v", ev, err)
		if s.metrics != nil {
			s.metrics.ErrorsTotal.WithLabelValues(strconv.FormatUint(ev.ChainID, 10), "dispatch").Inc()
		}
	}
}

// Stop drains the subscription; events already handed over stay queued in the dispatcher
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	s.log.Info("Ingest subscription drained")
	return nil
}
