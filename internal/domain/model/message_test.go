package model_test

import (
	"testing"
	"time"

	model "github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

func TestStoredDocument(t *testing.T) {
	convey.Convey("Given a stored document", t, func() {
		ts := time.Unix(1_700_000_000, 500)

		convey.Convey("When creating documents for the same value twice", func() {
			a := model.NewStoredDocument(types.Text("x"), ts)
			b := model.NewStoredDocument(types.Text("x"), ts)

			convey.Convey("Then each should get a distinct identifier", func() {
				convey.So(a.ID.IsZero(), convey.ShouldBeFalse)
				convey.So(a.ID, convey.ShouldNotEqual, b.ID)
				convey.So(a.Timestamp, convey.ShouldEqual, int64(1_700_000_000))
			})
		})

		convey.Convey("When marshalling each kind", func() {
			cases := []struct {
				value types.TypedValue
				want  bsontype.Type
			}{
				{types.Text("hello"), bsontype.String},
				{types.Float(2.5), bsontype.Double},
				{types.Integer(7), bsontype.Int32},
			}

			for _, c := range cases {
				raw, err := bson.Marshal(model.NewStoredDocument(c.value, ts))
				convey.So(err, convey.ShouldBeNil)

				doc := bson.Raw(raw)
				convey.So(doc.Lookup(model.FieldValue).Type, convey.ShouldEqual, c.want)
				convey.So(doc.Lookup(model.FieldTimestamp).Type, convey.ShouldEqual, bsontype.Int64)
				convey.So(doc.Lookup(model.FieldID).Type, convey.ShouldEqual, bsontype.ObjectID)

				elems, err := doc.Elements()
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(elems), convey.ShouldEqual, 3)
			}
		})
	})
}

func TestInboundMessage(t *testing.T) {
	convey.Convey("Given an InboundMessage with zero values", t, func() {
		msg := model.InboundMessage{}

		convey.Convey("Then it should have empty fields", func() {
			convey.So(msg.Topic, convey.ShouldEqual, "")
			convey.So(msg.Payload, convey.ShouldEqual, "")
			convey.So(msg.ReceivedAt.IsZero(), convey.ShouldBeTrue)
		})
	})
}
