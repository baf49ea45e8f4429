package booking

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ConfirmQueue is the in-process FIFO of appointment IDs awaiting deferred
// automatic confirmation. It is owned by the process and injected into both
// producer and consumer. Entries are bare IDs, are not deduplicated, and do
// not survive a crash.
type ConfirmQueue struct {
	mu     sync.Mutex
	items  []uuid.UUID
	signal chan struct{}
}

func NewConfirmQueue() *ConfirmQueue {
	return &ConfirmQueue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an ID. It never blocks the producer.
func (q *ConfirmQueue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue pops the oldest ID, blocking until one is available or ctx is
// cancelled.
func (q *ConfirmQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()

			// Re-arm the signal so other queued items are not stranded
			// behind a consumed wakeup.
			if remaining > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return uuid.Nil, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *ConfirmQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
