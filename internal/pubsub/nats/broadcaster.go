package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dexstats/internal/config"

	"github.com/nats-io/nats.go"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrNotConnected = errors.New("nats: connection not ready")

type Client struct {
	nc  *nats.Conn
	log logger.Logger
}

func New(log logger.Logger, cfg *config.NATSConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	url := cfg.URL
	if url == "" {
		return nil, errors.New("nats url is required")
	}

	name := cfg.Name
	if name == "" {
		name = "dexstats"
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1), // endless reconnect
		nats.ReconnectWait(reconnectWait),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Infof("Connected to NATS successfully, url=%s", url)

	return &Client{
		nc:  nc,
		log: log,
	}, nil
}

// Publish JSON-encodes data onto subject
func (c *Client) Publish(_ context.Context, subject string, data interface{}) error {
	if !c.Ready() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", subject, err)
	}
	if err = c.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe queue subscription when queue is set, plain otherwise
func (c *Client) Subscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if c.nc == nil {
		return nil, ErrNotConnected
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.nc.QueueSubscribe(subject, queue, handler)
	} else {
		sub, err = c.nc.Subscribe(subject, handler)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Flush round-trips to the server so every published message is on the wire
func (c *Client) Flush(ctx context.Context) error {
	if c.nc == nil {
		return ErrNotConnected
	}
	return c.nc.FlushWithContext(ctx)
}

func (c *Client) Health(_ context.Context) error {
	if !c.Ready() {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) Ready() bool {
	if c.nc == nil {
		return false
	}
	return c.nc.Status() == nats.CONNECTED
}

func (c *Client) Status() nats.Status {
	if c.nc == nil {
		return nats.DISCONNECTED
	}
	return c.nc.Status()
}

func (c *Client) Close() error {
	if c.nc == nil {
		return nil
	}

	// check not close this conn
	if c.nc.Status() == nats.CLOSED {
		return nil
	}

	if err := c.nc.Drain(); err != nil {
		c.log.Errorf("Failed to drain connection to NATS, error=%v", err)
		c.nc.Close()
		return fmt.Errorf("failed to drain connection to NATS: %w", err)
	}

	// Drain is async, Close after it settles
	for i := 0; i < 50 && c.nc.IsDraining(); i++ {
		time.Sleep(10 * time.Millisecond)
	}
	c.nc.Close()
	c.log.Infof("NATS connection closed gracefully")
	return nil
}
