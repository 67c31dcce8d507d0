package journal

import (
	"context"
	"sync"

	"github.com/wricardo/marsrover/rover/engine"
)

// DefaultCapacity is used when NewMemoryJournal is given a non-positive size.
const DefaultCapacity = 1000

// MemoryJournal keeps the most recent entries in memory. Move numbers keep
// increasing after old entries are evicted.
type MemoryJournal struct {
	mu       sync.RWMutex
	entries  []engine.MoveHistoryEntry
	capacity int
	next     int
	closed   bool
}

// NewMemoryJournal creates a journal holding at most capacity entries
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryJournal{
		entries:  make([]engine.MoveHistoryEntry, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

func (j *MemoryJournal) Record(ctx context.Context, entry *engine.MoveHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}

	j.next++
	entry.MoveNumber = j.next

	if len(j.entries) == j.capacity {
		copy(j.entries, j.entries[1:])
		j.entries = j.entries[:len(j.entries)-1]
	}
	j.entries = append(j.entries, *entry)
	return nil
}

func (j *MemoryJournal) List(ctx context.Context, offset, limit int, newestFirst bool) ([]engine.MoveHistoryEntry, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	total := len(j.entries)
	if offset >= total || limit == 0 {
		return []engine.MoveHistoryEntry{}, nil
	}
	end := min(offset+limit, total)

	result := make([]engine.MoveHistoryEntry, 0, end-offset)
	for i := offset; i < end; i++ {
		idx := i
		if newestFirst {
			idx = total - 1 - i
		}
		result = append(result, j.entries[idx])
	}
	return result, nil
}

func (j *MemoryJournal) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return 0, ErrClosed
	}
	return len(j.entries), nil
}

func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	j.entries = nil
	return nil
}
