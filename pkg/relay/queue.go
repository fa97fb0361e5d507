package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

// ErrQueueClosed is returned when enqueueing onto a closed queue.
var ErrQueueClosed = errors.New("delivery queue closed")

// Queue is an unbounded FIFO of outbound envelopes for one platform.
// Any worker may enqueue; the platform's own delivery loop is the single
// consumer. Items are never duplicated and enqueue never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []model.OutboundEnvelope
	signal chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *Queue) Enqueue(env model.OutboundEnvelope) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue blocks until an envelope is available, the queue is closed, or
// the context is canceled. The second return is false when no more items
// will arrive.
func (q *Queue) Dequeue(ctx context.Context) (model.OutboundEnvelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.done:
			return model.OutboundEnvelope{}, false
		case <-ctx.Done():
			return model.OutboundEnvelope{}, false
		}
	}
}

// Len reports the number of queued envelopes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}
