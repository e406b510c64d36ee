// Package worker drains the dispatch queue and hands each message to a Handler.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/okian/topicsink/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("worker pool already started")

// Message abstracts what workers read off the queue.
type Message = model.InboundMessage

// Handler processes one message. Errors are logged and counted, never retried.
type Handler interface {
	Handle(ctx context.Context, m Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, m Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, m Message) error { return f(ctx, m) } //nolint:gocritic // hugeParam: Message is passed by value for channel semantics

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Message
	Close() error
}

// dequeueMarker is implemented by queues that track dequeue metrics.
type dequeueMarker interface {
	MarkDequeued()
}

// Pool runs a fixed number of workers over a shared queue.
type Pool struct {
	size    int
	queue   Queue
	handler Handler
	name    string
	logger  logger.Logger

	mu      sync.Mutex
	started bool
	group   *errgroup.Group
	abort   context.CancelFunc
	done    chan struct{}
}

// NewPool creates a worker pool. A size below one falls back to NumCPU*2.
func NewPool(size int, q Queue, h Handler, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		size:    size,
		queue:   q,
		handler: h,
		name:    "worker",
		logger:  logger.Get().Named("worker-pool"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers. They exit only once the queue is closed and
// drained. Cancelling ctx does not stop them; the deadline passed to Shutdown
// bounds the drain.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	runCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	p.abort = abort
	g := &errgroup.Group{}
	p.group = g
	messages := p.queue.Dequeue(runCtx)
	for i := 0; i < p.size; i++ {
		l := p.logger.Named(p.name + "-" + strconv.Itoa(i))
		g.Go(func() error {
			p.run(runCtx, messages, l)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	metrics.UpdateWorkerCount(p.size)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
	return nil
}

// run handles messages until the channel is closed. After an aborted
// shutdown ctx is cancelled, so the remaining messages fail fast in the
// handler and are counted as failures rather than vanishing.
func (p *Pool) run(ctx context.Context, messages <-chan Message, l logger.Logger) {
	marker, _ := p.queue.(dequeueMarker)
	for m := range messages {
		if marker != nil {
			marker.MarkDequeued()
		}
		p.process(ctx, m, l)
	}
}

func (p *Pool) process(ctx context.Context, m Message, l logger.Logger) { //nolint:gocritic // hugeParam: Message is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1e3)
	}()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByType("handler_panic", "critical")
			l.Error(ctx, "handler panicked", logger.String("topic", m.Topic), logger.Any("panic", r))
		}
	}()

	if err := p.handler.Handle(ctx, m); err != nil {
		metrics.RecordWorkerError()
		l.Debug(ctx, "message not persisted", logger.String("topic", m.Topic), logger.Error(err))
	}
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// expires first, in-flight and remaining messages are handed a cancelled
// context so the workers finish quickly.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	p.mu.Lock()
	started := p.started
	abort := p.abort
	p.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-p.done:
		abort()
		metrics.UpdateWorkerCount(0)
		p.logger.Info(ctx, "worker pool stopped")
		return nil
	case <-ctx.Done():
		abort()
		p.logger.Warn(ctx, "worker pool shutdown timed out, aborting remaining messages")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
