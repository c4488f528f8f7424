package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
)

// likeFilter matches the document only while userID is absent from likedBy.
func likeFilter(id primitive.ObjectID, userID string) bson.M {
	return bson.M{"_id": id, "likedBy": bson.M{"$ne": userID}}
}

func likeUpdate(userID string) bson.M {
	return bson.M{
		"$addToSet": bson.M{"likedBy": userID},
		"$inc":      bson.M{"upvotes": 1},
	}
}

// unlikeFilter matches the document only while userID is present in likedBy.
func unlikeFilter(id primitive.ObjectID, userID string) bson.M {
	return bson.M{"_id": id, "likedBy": userID}
}

func unlikeUpdate(userID string) bson.M {
	return bson.M{
		"$pull": bson.M{"likedBy": userID},
		"$inc":  bson.M{"upvotes": -1},
	}
}

// conditionalVote applies the guarded update in one atomic operation. When the guard
// does not match, a second lookup tells a missing document apart from a rejected transition.
func conditionalVote[T any](ctx context.Context, coll *mongo.Collection, resource string, id primitive.ObjectID,
	filter, update bson.M, rejected error, rejectedMsg string,
) (*T, error) {
	var out T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("vote %s %s: %w", resource, id.Hex(), err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("count %s %s: %w", resource, id.Hex(), err)
	}
	if n == 0 {
		return nil, apperror.NotFound(resource, id.Hex())
	}
	return nil, apperror.Conflict(rejected, rejectedMsg)
}
