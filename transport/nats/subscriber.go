package natsevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/wricardo/marsrover/rover/service"
)

// Subscriber receives rover events.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for subscribing.
func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: nc}, nil
}

// Subscribe calls handler for every event published under prefix.
// Messages that are not valid events are logged and skipped.
func (s *Subscriber) Subscribe(ctx context.Context, prefix string, handler func(ctx context.Context, event service.Event) error) error {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	sub, err := s.conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			log.Warn("skipping malformed event", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, event); err != nil {
			log.Warn("event handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

func decodeEvent(data []byte) (service.Event, error) {
	var event service.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return event, err
	}
	if event.Type == "" {
		return event, fmt.Errorf("event has no type")
	}
	return event, nil
}
