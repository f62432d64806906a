package events

import (
	"context"
	"log/slog"
	"sync"

	"auction/internal/metrics"
)

// Queue hands events to a background worker so slow sinks never hold up
// an operation. A single worker keeps delivery in commit order.
type Queue struct {
	next   Publisher
	events chan *Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts a worker delivering to next with room for size pending events
func NewQueue(next Publisher, size int) *Queue {
	if size < 1 {
		size = 1
	}

	q := &Queue{
		next:   next,
		events: make(chan *Event, size),
		done:   make(chan struct{}),
	}
	go q.run()

	return q
}

func (q *Queue) run() {
	defer close(q.done)

	for event := range q.events {
		metrics.EventQueueDepth.Set(float64(len(q.events)))
		q.next.Publish(context.Background(), event)
	}
}

// Publish enqueues event, waiting for room until ctx is done.
// Events published after Close are dropped.
func (q *Queue) Publish(ctx context.Context, event *Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.ErrorsTotal.WithLabelValues("event_queue").Inc()
		slog.Warn("Event queue closed, dropping event", "event_id", event.ID, "type", event.Type)
		return
	}

	select {
	case q.events <- event:
		metrics.EventQueueDepth.Set(float64(len(q.events)))
	case <-ctx.Done():
		metrics.ErrorsTotal.WithLabelValues("event_queue").Inc()
		slog.Warn("Event queue full, dropping event",
			"event_id", event.ID,
			"type", event.Type,
			"error", ctx.Err(),
		)
	}
}

// Close stops accepting events and waits until the pending ones are delivered
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
