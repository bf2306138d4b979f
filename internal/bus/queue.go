package bus

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO between event producers and the bus. Producers
// call Post from any goroutine without blocking; a single Run loop drains it.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post appends evt. It never blocks.
func (q *Queue) Post(evt Event) {
	q.mu.Lock()
	q.items = append(q.items, evt)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of events waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Run raises queued events on b in arrival order until ctx is cancelled.
// Handler failures are already recorded by the bus and do not stop the loop.
func (q *Queue) Run(ctx context.Context, b *Bus) error {
	for {
		for _, evt := range q.drain() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_ = b.RaiseEvent(evt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		}
	}
}
