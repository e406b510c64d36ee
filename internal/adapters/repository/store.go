// Package repository persists stored documents into per-topic collections.
package repository

import (
	"context"

	"github.com/okian/topicsink/internal/domain/model"
)

// DocumentStore writes documents into named collections.
type DocumentStore interface {
	// InsertDocument performs exactly one insert of doc into collection.
	// Failures wrap ErrInsertFailed; nothing is retried.
	InsertDocument(ctx context.Context, collection string, doc model.StoredDocument) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// CountDocuments returns the number of documents in collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
