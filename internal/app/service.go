// Package service classifies inbound broker messages and persists them
// through the document sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/topicsink/internal/adapters/mq/queue"
	"github.com/okian/topicsink/internal/adapters/mq/worker"
	"github.com/okian/topicsink/internal/adapters/repository"
	"github.com/okian/topicsink/internal/domain/classifier"
	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/okian/topicsink/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultQueueSize = 10_000
	dropLogInterval  = time.Second
)

// Service implements the handler the broker adapter dispatches into.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.DocumentStore
	sink       *Sink
	classifier *classifier.Classifier
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	// Configuration
	database         string
	workerCount      int
	queueSize        int
	collectionPolicy collection.Policy
	overflowPolicy   classifier.OverflowPolicy
	now              func() time.Time

	// State
	started bool
	dropLog *rate.Limiter

	handled atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		database:         repository.DefaultDatabase,
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        defaultQueueSize,
		collectionPolicy: collection.PolicySanitize,
		overflowPolicy:   classifier.OverflowSaturate,
		now:              time.Now,
		dropLog:          rate.NewLimiter(rate.Every(dropLogInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.classifier = classifier.New(classifier.WithOverflowPolicy(s.overflowPolicy))
	if s.store != nil {
		namer := collection.NewNamer(s.database, s.collectionPolicy)
		s.sink = NewSink(s.store, namer, s.logger.Named("sink"))
	}
	return s
}

// SinkActive reports whether messages are persisted.
func (s *Service) SinkActive() bool { return s.sink != nil }

// Start creates the dispatch queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	metrics.UpdateSinkActive(s.SinkActive())
	if !s.SinkActive() {
		s.logger.Warn(ctx, "sink inactive, messages will not be persisted")
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, worker.WithLogger(s.logger.Named("worker")))
	if err := s.pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("collection_policy", string(s.collectionPolicy)),
		logger.String("overflow_policy", string(s.overflowPolicy)),
	)
	return nil
}

// Stop drains the dispatch queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool := s.pool
	pending := s.queue.Len()
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping service", logger.Int("pending", pending))
	err := pool.Shutdown(ctx)
	s.logger.Info(ctx, "service stopped",
		logger.Int64("handled", s.handled.Load()),
		logger.Int64("failed", s.failed.Load()),
		logger.Int64("dropped", s.dropped.Load()),
	)
	return err
}

// Handle classifies m and persists it synchronously. The timestamp is taken
// at classification time.
func (s *Service) Handle(ctx context.Context, m model.InboundMessage) error { //nolint:gocritic // hugeParam: passed by value through the queue
	if s.sink == nil {
		return ErrSinkInactive
	}

	ts := s.now()
	value := s.classifier.Classify(m.Payload)
	metrics.RecordMessageClassified(value.Kind.String())

	if err := s.sink.Persist(ctx, m.Topic, value, ts.Unix()); err != nil {
		s.failed.Add(1)
		return err
	}
	s.handled.Add(1)
	metrics.RecordMessageHandled()
	return nil
}

// Dispatch hands m to the worker pool without blocking. A full queue drops
// the message.
func (s *Service) Dispatch(ctx context.Context, m model.InboundMessage) error { //nolint:gocritic // hugeParam: passed by value through the queue
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if s.sink == nil {
		return ErrSinkInactive
	}
	if !started {
		return ErrNotStarted
	}

	err := q.Enqueue(ctx, m)
	if err == nil {
		return nil
	}

	s.dropped.Add(1)
	if errors.Is(err, queue.ErrFull) && s.dropLog.Allow() {
		s.logger.Warn(ctx, "dispatch queue full, dropping messages",
			logger.String("topic", m.Topic),
			logger.Int("capacity", q.Cap()),
			logger.Int64("dropped_total", s.dropped.Load()),
		)
	}
	return fmt.Errorf("%w: %w", ErrDropped, err)
}

// Ready reports whether the store answers. An inactive sink is ready.
func (s *Service) Ready(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"sink_active":       s.SinkActive(),
		"worker_count":      s.workerCount,
		"queue_capacity":    s.queueSize,
		"collection_policy": string(s.collectionPolicy),
		"overflow_policy":   string(s.overflowPolicy),
		"messages_handled":  s.handled.Load(),
		"messages_failed":   s.failed.Load(),
		"messages_dropped":  s.dropped.Load(),
	}
	if s.started {
		stats["queue_length"] = s.queue.Len()
	}
	return stats
}
