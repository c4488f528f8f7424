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

type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	// List returns questions newest first.
	List(ctx context.Context, offset, limit int) ([]model.Question, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncrementReplyCount(ctx context.Context, id primitive.ObjectID) error
	Like(ctx context.Context, id primitive.ObjectID, userID string) (*model.Question, error)
	Unlike(ctx context.Context, id primitive.ObjectID, userID string) (*model.Question, error)
}

type questionRepository struct {
	coll *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) QuestionRepository {
	return &questionRepository{coll: db.Collection(QuestionsCollection)}
}

func (r *questionRepository) Create(ctx context.Context, q *model.Question) error {
	if q.LikedBy == nil {
		q.LikedBy = []string{}
	}
	res, err := r.coll.InsertOne(ctx, q)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		q.ID = id
	}
	return nil
}

func (r *questionRepository) List(ctx context.Context, offset, limit int) ([]model.Question, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	out := make([]model.Question, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}

func (r *questionRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count question %s: %w", id.Hex(), err)
	}
	return n > 0, nil
}

func (r *questionRepository) IncrementReplyCount(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"replyCount": 1}})
	if err != nil {
		return fmt.Errorf("increment reply count %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("question", id.Hex())
	}
	return nil
}

func (r *questionRepository) Like(ctx context.Context, id primitive.ObjectID, userID string) (*model.Question, error) {
	return conditionalVote[model.Question](ctx, r.coll, "question", id,
		likeFilter(id, userID), likeUpdate(userID),
		apperror.ErrAlreadyLiked, "You have already liked this question")
}

func (r *questionRepository) Unlike(ctx context.Context, id primitive.ObjectID, userID string) (*model.Question, error) {
	return conditionalVote[model.Question](ctx, r.coll, "question", id,
		unlikeFilter(id, userID), unlikeUpdate(userID),
		apperror.ErrNotYetLiked, "You have not liked this question yet")
}
