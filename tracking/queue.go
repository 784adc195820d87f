package tracking

import (
	"sync"

	"github.com/theoremus-urban-solutions/aistrack/model"
)

// queue is an unbounded FIFO with a single consumer. Producers never block.
type queue struct {
	mu     sync.Mutex
	items  []model.Report
	closed bool
	// ready holds a token whenever items were pushed or the queue closed
	// since the consumer last looked.
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(r model.Report) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, r)
	q.mu.Unlock()
	q.signal()
	return true
}

// drain takes every queued item.
func (q *queue) drain() ([]model.Report, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, q.closed
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
