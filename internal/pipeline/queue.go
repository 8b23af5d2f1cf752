package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

var (
	ErrQueueClosed = errors.New("alert queue closed")
	ErrNotFiring   = errors.New("alert is not firing")
)

type item struct {
	id         uuid.UUID
	alert      models.Alert
	enqueuedAt time.Time
	// reply is nil for fire-and-forget items; otherwise it has capacity 1.
	reply chan Result
}

// Queue is an unbounded FIFO of alerts. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

func (q *Queue) push(it item) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) pop() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item{}, false
	}
	it := q.items[0]
	q.items[0] = item{}
	q.items = q.items[1:]
	return it, true
}

// Len returns the number of queued alerts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close rejects further pushes and discards what is queued. Waiting callers
// receive ErrQueueClosed. It returns the number of discarded items.
func (q *Queue) close() int {
	q.mu.Lock()
	pending := q.items
	q.items = nil
	q.closed = true
	q.mu.Unlock()

	for _, it := range pending {
		if it.reply != nil {
			it.reply <- Result{ID: it.id, Err: ErrQueueClosed}
		}
	}
	return len(pending)
}
