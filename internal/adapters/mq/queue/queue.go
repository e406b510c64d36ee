// Package queue buffers inbound messages between the broker callback and the workers.
//
// Enqueue never blocks: a full queue drops the message and reports ErrFull so
// the broker's dispatch goroutine is never stalled by a slow store.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Message is the payload type flowing through the queue.
type Message = model.InboundMessage

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a message. It fails with ErrFull or ErrClosed instead of blocking.
	Enqueue(ctx context.Context, m Message) error

	// Dequeue returns the receive side. It is closed after Close once drained.
	Dequeue(ctx context.Context) <-chan Message

	// Len returns the number of buffered messages.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops accepting messages. Buffered messages stay readable.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan Message, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a message to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) error { //nolint:gocritic // hugeParam: Message is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop(DropReasonClosed)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDrop(DropReasonCancelled)
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.messages <- m:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueDrop(DropReasonFull)
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Message {
	return q.messages
}

// Len returns the number of buffered messages.
func (q *InMemoryQueue) Len() int {
	return len(q.messages)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// MarkDequeued updates queue gauges after a consumer took a message.
func (q *InMemoryQueue) MarkDequeued() {
	metrics.RecordQueueDequeue()
	q.observe()
}

// Close stops accepting new messages.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.messages)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
