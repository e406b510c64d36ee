package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/internal/domain/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// sentDocument returns the single document carried by the last insert command.
func sentDocument(mt *mtest.T) (string, bson.Raw) {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil {
		mt.Fatal("expected a started command event")
	}
	if evt.CommandName != "insert" {
		mt.Fatalf("expected insert command, got %q", evt.CommandName)
	}
	values, err := evt.Command.Lookup("documents").Array().Values()
	if err != nil {
		mt.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 {
		mt.Fatalf("expected exactly one document, got %d", len(values))
	}
	return evt.Command.Lookup("insert").StringValue(), values[0].Document()
}

func TestMongoStore_InsertDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	cases := []struct {
		name  string
		value types.TypedValue
		want  bsontype.Type
	}{
		{"text", types.Text("hello"), bsontype.String},
		{"float", types.Float(3.14), bsontype.Double},
		{"integer", types.Integer(-42), bsontype.Int32},
	}

	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			store := NewMongoStore(mt.DB, WithInsertTimeout(time.Second))
			mt.AddMockResponses(mtest.CreateSuccessResponse())

			doc := model.NewStoredDocument(tc.value, time.Now())
			if err := store.InsertDocument(context.Background(), "sensors/room1", doc); err != nil {
				mt.Fatalf("unexpected error: %v", err)
			}

			coll, sent := sentDocument(mt)
			if coll != "sensors/room1" {
				mt.Errorf("expected collection sensors/room1, got %q", coll)
			}
			if got := sent.Lookup("value").Type; got != tc.want {
				mt.Errorf("expected value type %v, got %v", tc.want, got)
			}
			if got := sent.Lookup("timestamp").Type; got != bsontype.Int64 {
				mt.Errorf("expected int64 timestamp, got %v", got)
			}
			if got := sent.Lookup("timestamp").Int64(); got != doc.Timestamp {
				mt.Errorf("expected timestamp %d, got %d", doc.Timestamp, got)
			}
			if got := sent.Lookup("_id").ObjectID(); got != doc.ID {
				mt.Errorf("expected id %v, got %v", doc.ID, got)
			}
		})
	}

	mt.Run("two inserts produce distinct documents", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if err := store.InsertDocument(ctx, "dup", model.NewStoredDocument(types.Integer(1), time.Now())); err != nil {
				mt.Fatalf("unexpected error: %v", err)
			}
		}

		_, first := sentDocument(mt)
		_, second := sentDocument(mt)
		if first.Lookup("_id").ObjectID() == second.Lookup("_id").ObjectID() {
			mt.Error("expected distinct identifiers")
		}
	})

	mt.Run("store failure", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    13,
			Message: "not authorized on tcc to execute command",
		}))

		err := store.InsertDocument(context.Background(), "secure", model.NewStoredDocument(types.Text("x"), time.Now()))
		if !errors.Is(err, ErrInsertFailed) {
			mt.Fatalf("expected ErrInsertFailed, got %v", err)
		}
		if err.Error() == ErrInsertFailed.Error() {
			mt.Error("expected the store error text to be preserved")
		}
	})
}

func TestMongoStore_PingAndCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ping", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := store.Ping(context.Background()); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
		if store.Database() != mt.DB.Name() {
			mt.Errorf("expected database %q, got %q", mt.DB.Name(), store.Database())
		}
	})

	mt.Run("count", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		ns := mt.DB.Name() + ".sensors"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		n, err := store.CountDocuments(context.Background(), "sensors")
		if err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
		if n != 3 {
			mt.Errorf("expected 3 documents, got %d", n)
		}
	})

	mt.Run("close keeps borrowed client", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		if err := store.Close(context.Background()); err != nil {
			mt.Fatalf("unexpected error: %v", err)
		}
		if err := store.Ping(context.Background()); !errors.Is(err, ErrNotConnected) {
			mt.Errorf("expected ErrNotConnected after close, got %v", err)
		}
	})
}

func TestMongoStore_NotConnected(t *testing.T) {
	store := NewMongoStore(nil, WithDatabase("tcc"), WithMaxPoolSize(10), WithConnectTimeout(time.Second))
	ctx := context.Background()

	if err := store.InsertDocument(ctx, "t", model.NewStoredDocument(types.Text(""), time.Now())); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if _, err := store.CountDocuments(ctx, "t"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Errorf("expected nil close error, got %v", err)
	}
	if store.Database() != "tcc" {
		t.Errorf("expected database tcc, got %q", store.Database())
	}
	if store.maxPoolSize != 10 || store.connectTimeout != time.Second {
		t.Error("expected options to be applied")
	}
}
