package engine

import (
	"sync"

	"github.com/roach88/tally/internal/counter"
)

// Event is one queued dispatch. Reply, when set, receives the outcome.
type Event struct {
	Action counter.Action
	Reply  chan<- Result
}

// Result is what a queued dispatch produced.
type Result struct {
	Snapshot Snapshot
	Err      error
}

// eventQueue is a thread-safe unbounded FIFO.
//
// Enqueue may be called from any goroutine; only the Run loop dequeues.
// The signal channel (buffer 1) lets the loop wait with a select on ctx.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so the backing array does not pin the reply channel.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available, and is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Drain removes and returns everything still queued.
func (q *eventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.events
	q.events = nil
	return out
}
