// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/topicsink/internal/domain/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document field names as they appear on the wire.
const (
	FieldID        = "_id"
	FieldValue     = "value"
	FieldTimestamp = "timestamp"
)

// InboundMessage is one publish event delivered by the broker.
// It is only valid for the duration of a single handler call.
type InboundMessage struct {
	Topic      string    // collection-routing key
	Payload    string    // raw payload interpreted as text
	ReceivedAt time.Time // broker delivery time, informational only
}

// StoredDocument is the record inserted into the topic collection.
type StoredDocument struct {
	ID        primitive.ObjectID
	Value     types.TypedValue
	Timestamp int64 // epoch seconds at classification time
}

// NewStoredDocument creates a document with a fresh identifier.
func NewStoredDocument(value types.TypedValue, ts time.Time) StoredDocument {
	return StoredDocument{
		ID:        primitive.NewObjectID(),
		Value:     value,
		Timestamp: ts.Unix(),
	}
}

// BSON returns the ordered document. The value field keeps the tag's
// concrete Go type so it encodes as string, double or int32.
func (d StoredDocument) BSON() bson.D {
	return bson.D{
		{Key: FieldID, Value: d.ID},
		{Key: FieldValue, Value: d.Value.Native()},
		{Key: FieldTimestamp, Value: d.Timestamp},
	}
}

// MarshalBSON implements bson.Marshaler.
func (d StoredDocument) MarshalBSON() ([]byte, error) {
	return bson.Marshal(d.BSON())
}
