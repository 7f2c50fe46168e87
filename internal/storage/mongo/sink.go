// Package mongo is the MongoDB hotel sink.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripadvisor_hotels/internal/domain"
)

const DefaultCollection = "hotels-again"

// Sink writes each hotel as one document with _id = hotel key. The first write
// wins, so repeated harvests never duplicate or rewrite a document.
type Sink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func Connect(ctx context.Context, uri, db, collection string) (*Sink, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Sink{client: client, coll: client.Database(db).Collection(collection)}, nil
}

func (s *Sink) Insert(ctx context.Context, h domain.Hotel) error {
	if h.Key == "" {
		return errors.New("hotel without key")
	}
	doc, err := document(h)
	if err != nil {
		return err
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": h.Key},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

// document is h without _id, which the filter already supplies.
func document(h domain.Hotel) (bson.M, error) {
	b, err := bson.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode hotel %s: %w", h.Key, err)
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode hotel %s: %w", h.Key, err)
	}
	delete(m, "_id")
	return m, nil
}

// Count returns the number of stored hotels.
func (s *Sink) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

func (s *Sink) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
