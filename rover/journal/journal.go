package journal

import (
	"context"
	"errors"

	"github.com/wricardo/marsrover/rover/engine"
)

var (
	ErrClosed       = errors.New("journal closed")
	ErrInvalidRange = errors.New("invalid offset or limit")
)

// Journal defines the interface for storing move history
type Journal interface {
	// Record appends entry and assigns its MoveNumber
	Record(ctx context.Context, entry *engine.MoveHistoryEntry) error

	// List returns up to limit entries starting at offset, oldest first
	// unless newestFirst is set
	List(ctx context.Context, offset, limit int, newestFirst bool) ([]engine.MoveHistoryEntry, error)

	// Count returns the number of entries available to List
	Count(ctx context.Context) (int, error)

	// Close releases the underlying storage
	Close() error
}

func checkRange(offset, limit int) error {
	if offset < 0 || limit < 0 {
		return ErrInvalidRange
	}
	return nil
}
