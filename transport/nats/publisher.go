package natsevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wricardo/marsrover/rover/service"
)

// DefaultPrefix is the subject prefix events are published under.
const DefaultPrefix = "rover.events"

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher implements service.EventPublisher using core NATS.
type Publisher struct {
	conn   conn
	prefix string
}

var _ service.EventPublisher = (*Publisher)(nil)

// Connect dials url with unbounded reconnects.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("marsrover"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NewPublisher connects to NATS and publishes under prefix (DefaultPrefix
// when empty).
func NewPublisher(url, prefix string) (*Publisher, error) {
	nc, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return newPublisher(nc, prefix), nil
}

func newPublisher(c conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{conn: c, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (p *Publisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *Publisher) Publish(ctx context.Context, event service.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
