package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements DocumentStore on a long-lived mongo client.
// Collection handles are resolved per call and never cached.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	owned    bool

	dbName         string
	insertTimeout  time.Duration
	connectTimeout time.Duration
	maxPoolSize    uint64
}

var _ DocumentStore = (*MongoStore)(nil)

func newMongoStore(opts ...Option) *MongoStore {
	s := &MongoStore{
		dbName:         DefaultDatabase,
		insertTimeout:  DefaultInsertTimeout,
		connectTimeout: DefaultConnectTimeout,
		maxPoolSize:    DefaultMaxPoolSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials uri, verifies the primary with a ping and returns a ready store.
func Connect(ctx context.Context, uri string, opts ...Option) (*MongoStore, error) {
	s := newMongoStore(opts...)

	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(s.maxPoolSize).
		SetServerSelectionTimeout(s.connectTimeout).
		SetConnectTimeout(s.connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrConnect, err)
	}

	s.client = client
	s.database = client.Database(s.dbName)
	s.owned = true
	return s, nil
}

// NewMongoStore wraps an existing database handle. The caller keeps
// ownership of the client.
func NewMongoStore(db *mongo.Database, opts ...Option) *MongoStore {
	s := newMongoStore(opts...)
	if db != nil {
		s.database = db
		s.client = db.Client()
		s.dbName = db.Name()
	}
	return s
}

// Database returns the configured database name.
func (s *MongoStore) Database() string { return s.dbName }

// InsertDocument implements DocumentStore.
func (s *MongoStore) InsertDocument(ctx context.Context, collection string, doc model.StoredDocument) error {
	if s.database == nil {
		return ErrNotConnected
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.insertTimeout)
	defer cancel()

	_, err := s.database.Collection(collection).InsertOne(ctx, doc)
	latency := float64(time.Since(start).Nanoseconds()) / 1e6

	if err != nil {
		metrics.RecordInsert(metrics.ResultFailed, latency)
		metrics.RecordErrorByComponent("repository", "insert_failed")
		return fmt.Errorf("%w: %s.%s: %w", ErrInsertFailed, s.dbName, collection, err)
	}
	metrics.RecordInsert(metrics.ResultOK, latency)
	return nil
}

// Ping implements DocumentStore.
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CountDocuments implements DocumentStore.
func (s *MongoStore) CountDocuments(ctx context.Context, collection string) (int64, error) {
	if s.database == nil {
		return 0, ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, s.insertTimeout)
	defer cancel()
	n, err := s.database.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Close implements DocumentStore. Stores built with NewMongoStore only
// drop their handles.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if !s.owned {
		s.client = nil
		s.database = nil
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	s.client = nil
	s.database = nil
	return nil
}
