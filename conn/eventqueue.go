// Package conn implements the per-connection reader/writer thread pair
// described in spec §4.3: a reader drives the OACSP parser and forwards
// Commands to the domain; a writer drains a bounded event queue and
// serializes each Update onto the wire.
package conn

import (
	"errors"
	"sync"

	"github.com/apoloval/flightvars/types"
)

// DefaultEventQueueCapacity bounds how many undelivered Events a slow
// client can accumulate before further Sends are rejected.
const DefaultEventQueueCapacity = 256

// ErrQueueFull is returned by EventQueue.Send when the bounded queue is
// already at capacity. Per spec §4.6, a failed send is logged and
// swallowed by the caller, never treated as connection-fatal.
var ErrQueueFull = errors.New("conn: event queue full")

// ErrQueueClosed is returned by Recv once the queue is closed and empty.
var ErrQueueClosed = errors.New("conn: event queue closed")

// EventQueue is the bounded MPSC channel spec §4.3 describes the writer
// thread consuming from. It implements types.EventSink so a domain worker
// can hold it (via types.Client.Sink) without depending on this package.
type EventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []types.Event
	cap    int
	closed bool
}

// NewEventQueue creates an open queue bounded at capacity.
func NewEventQueue(capacity int) *EventQueue {
	q := &EventQueue{cap: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send enqueues ev, or returns ErrQueueFull if the queue is already at
// capacity. Send on a closed queue is a no-op success: the writer thread
// having already exited is an expected shutdown race, not an error.
func (q *EventQueue) Send(ev types.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	if len(q.queue) >= q.cap {
		return ErrQueueFull
	}
	q.queue = append(q.queue, ev)
	q.cond.Signal()
	return nil
}

// Recv blocks for the next Event. It returns ErrQueueClosed once the queue
// has been closed and drained — the writer thread's signal to exit.
func (q *EventQueue) Recv() (types.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.queue) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.queue) > 0 {
		ev := q.queue[0]
		q.queue = q.queue[1:]
		return ev, nil
	}
	return nil, ErrQueueClosed
}

// Close marks the queue closed and wakes any blocked Recv.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
