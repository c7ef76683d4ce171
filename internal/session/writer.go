package session

import (
	"sync"

	"github.com/eapache/queue"
)

// writeQueue is an unbounded FIFO of pending payloads drained by a single writer goroutine.
type writeQueue struct {
	mu      sync.Mutex
	pending *queue.Queue
	closed  bool
	wake    chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
	}
}

// push appends data and wakes the writer. Returns the queue length after the
// push, or ok=false if the queue was already closed.
func (q *writeQueue) push(data []byte) (depth int, ok bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false
	}
	q.pending.Add(data)
	depth = q.pending.Length()
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return depth, true
}

// pop removes the oldest payload without blocking.
func (q *writeQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.pending.Length() == 0 {
		return nil, false
	}
	return q.pending.Remove().([]byte), true
}

func (q *writeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Length()
}

// close drops everything still pending. Subsequent pushes fail.
func (q *writeQueue) close() (dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	dropped = q.pending.Length()
	q.pending = queue.New()
	return dropped
}
