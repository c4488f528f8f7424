package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
)

type ReplyRepository interface {
	Create(ctx context.Context, r *model.Reply) error
	// ListByQuestion returns one question's replies newest first.
	ListByQuestion(ctx context.Context, questionID primitive.ObjectID, offset, limit int) ([]model.Reply, error)
	Like(ctx context.Context, id primitive.ObjectID, userID string) (*model.Reply, error)
	Unlike(ctx context.Context, id primitive.ObjectID, userID string) (*model.Reply, error)
}

type replyRepository struct {
	coll *mongo.Collection
}

func NewReplyRepository(db *mongo.Database) ReplyRepository {
	return &replyRepository{coll: db.Collection(RepliesCollection)}
}

func (r *replyRepository) Create(ctx context.Context, reply *model.Reply) error {
	if reply.LikedBy == nil {
		reply.LikedBy = []string{}
	}
	res, err := r.coll.InsertOne(ctx, reply)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		reply.ID = id
	}
	return nil
}

func (r *replyRepository) ListByQuestion(ctx context.Context, questionID primitive.ObjectID, offset, limit int) ([]model.Reply, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"questionId": questionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find replies of %s: %w", questionID.Hex(), err)
	}
	out := make([]model.Reply, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}
	return out, nil
}

func (r *replyRepository) Like(ctx context.Context, id primitive.ObjectID, userID string) (*model.Reply, error) {
	return conditionalVote[model.Reply](ctx, r.coll, "reply", id,
		likeFilter(id, userID), likeUpdate(userID),
		apperror.ErrAlreadyLiked, "You have already liked this reply")
}

func (r *replyRepository) Unlike(ctx context.Context, id primitive.ObjectID, userID string) (*model.Reply, error) {
	return conditionalVote[model.Reply](ctx, r.coll, "reply", id,
		unlikeFilter(id, userID), unlikeUpdate(userID),
		apperror.ErrNotYetLiked, "You have not liked this reply yet")
}
