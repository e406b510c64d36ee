package service

import (
	"time"

	"github.com/okian/topicsink/internal/adapters/repository"
	"github.com/okian/topicsink/internal/domain/classifier"
	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store. Without one the sink stays inactive.
func WithStore(store repository.DocumentStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithDatabase sets the database name used for the namespace length budget.
func WithDatabase(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.database = name
		}
	}
}

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCollectionPolicy sets how invalid topic names are handled.
func WithCollectionPolicy(p collection.Policy) Option {
	return func(s *Service) {
		s.collectionPolicy = p
	}
}

// WithOverflowPolicy sets how out-of-range numbers are classified.
func WithOverflowPolicy(p classifier.OverflowPolicy) Option {
	return func(s *Service) {
		s.overflowPolicy = p
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
