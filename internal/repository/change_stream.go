package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChangeStream is a live, lazily consumed feed of document change events.
// Next blocks until an event arrives or the stream ends; Err explains the end.
type ChangeStream interface {
	Next(ctx context.Context) bool
	// DocumentID is the _id of the document behind the current event.
	DocumentID() primitive.ObjectID
	Err() error
	Close(ctx context.Context) error
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

type mongoChangeStream struct {
	cs      *mongo.ChangeStream
	current primitive.ObjectID
	err     error
}

// updatesOnly 只订阅 update 事件，insert/replace/delete 无需重算
func updatesOnly() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "update"}}}},
	}
}

func watchUpdates(ctx context.Context, coll *mongo.Collection) (ChangeStream, error) {
	cs, err := coll.Watch(ctx, updatesOnly())
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", coll.Name(), err)
	}
	return &mongoChangeStream{cs: cs}, nil
}

func (s *mongoChangeStream) Next(ctx context.Context) bool {
	for s.cs.Next(ctx) {
		var ev changeEvent
		if err := s.cs.Decode(&ev); err != nil {
			s.err = fmt.Errorf("decode change event: %w", err)
			return false
		}
		if ev.DocumentKey.ID.IsZero() {
			continue
		}
		s.current = ev.DocumentKey.ID
		return true
	}
	return false
}

func (s *mongoChangeStream) DocumentID() primitive.ObjectID { return s.current }

func (s *mongoChangeStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.cs.Err()
}

func (s *mongoChangeStream) Close(ctx context.Context) error { return s.cs.Close(ctx) }
