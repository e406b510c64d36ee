package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/topicsink/internal/adapters/repository"
	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/internal/domain/types"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/okian/topicsink/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sink writes one typed document per call into the collection named after the topic.
type Sink struct {
	store  repository.DocumentStore
	namer  *collection.Namer
	logger logger.Logger
}

// NewSink creates a Sink over store. Topics are resolved through namer.
func NewSink(store repository.DocumentStore, namer *collection.Namer, l logger.Logger) *Sink {
	if l == nil {
		l = logger.Get().Named("sink")
	}
	return &Sink{store: store, namer: namer, logger: l}
}

// Persist inserts {_id, value, timestamp} into the topic collection. Failures
// are logged with the store's error text and returned; nothing is retried.
func (k *Sink) Persist(ctx context.Context, topic string, value types.TypedValue, timestamp int64) error {
	name, err := k.namer.Resolve(topic)
	if err != nil {
		metrics.RecordTopicRejected()
		k.logger.Warn(ctx, "topic rejected", logger.String("topic", topic), logger.Error(err))
		return fmt.Errorf("resolve collection: %w", err)
	}

	doc := model.StoredDocument{
		ID:        primitive.NewObjectID(),
		Value:     value,
		Timestamp: timestamp,
	}

	if err := k.store.InsertDocument(ctx, name, doc); err != nil {
		k.logger.Error(ctx, "insert failed",
			logger.String("collection", name),
			logger.String("kind", value.Kind.String()),
			logger.Error(err),
		)
		if !errors.Is(err, repository.ErrInsertFailed) {
			err = fmt.Errorf("%w: %w", repository.ErrInsertFailed, err)
		}
		return err
	}

	if name != topic {
		k.logger.Debug(ctx, "topic renamed for storage",
			logger.String("topic", topic), logger.String("collection", name))
	}
	return nil
}
