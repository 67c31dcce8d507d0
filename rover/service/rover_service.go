package service

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/journal"
)

var (
	ErrBatchTooLarge = errors.New("too many commands in batch")
	ErrInvalidOrder  = errors.New("order must be asc or desc")
)

// RoverService defines all rover operations
type RoverService interface {
	// Execute applies commands in order and stops at the first failure
	Execute(ctx context.Context, commands string) (*BatchResult, error)

	// State returns a snapshot of the rover
	State(ctx context.Context) (*engine.State, error)

	// History returns a page of the move journal
	History(ctx context.Context, opts HistoryOptions) (*HistoryResponse, error)
}

// EventPublisher receives rover events. Implementations must not block for
// long: Publish is called while the rover lock is held.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MultiPublisher fans an event out to every publisher in order. All of them
// are called even when one fails.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Dependencies wires a RoverService. Rover is required.
type Dependencies struct {
	Rover   *engine.Rover
	Lock    sync.Locker     // defaults to a new sync.Mutex
	Journal journal.Journal // defaults to an in-memory journal
	Events  EventPublisher  // defaults to NopPublisher
	Logger  *log.Logger     // defaults to log.Default()
}
