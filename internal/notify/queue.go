package notify

import (
	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
)

// Queue is a bounded FIFO between the poller and the dispatcher. Enqueue never
// blocks: when the buffer is full the event is rejected and the producer
// decides what to log. Events for the same order keep their enqueue order.
type Queue struct {
	ch chan Event
}

// NewQueue constructs a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// Enqueue offers an event without blocking.
func (q *Queue) Enqueue(e Event) error {
	select {
	case q.ch <- e:
		return nil
	default:
		return domainErrors.ErrQueueFull
	}
}

// C exposes the receive side for the dispatcher's select loop.
func (q *Queue) C() <-chan Event {
	return q.ch
}

// Len reports the number of buffered events.
func (q *Queue) Len() int {
	return len(q.ch)
}
