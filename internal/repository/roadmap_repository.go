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
	"github.com/d60-Lab/roadmap-api/internal/model"
)

type RoadmapRepository interface {
	Create(ctx context.Context, rm *model.Roadmap) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Roadmap, error)
	// FindByUserID returns (nil, nil) when the user has no roadmap yet.
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Roadmap, error)
	// SetSubtopicStatus atomically sets one subtopic's status when its current status is in from.
	// It reports whether the document was modified.
	SetSubtopicStatus(ctx context.Context, roadmapID primitive.ObjectID, topicID, subtopicID string, from []model.Status, to model.Status) (bool, error)
	// UpdateTopicStatuses writes derived topic statuses keyed by topic index.
	UpdateTopicStatuses(ctx context.Context, roadmapID primitive.ObjectID, statuses map[int]model.Status) error
	// Watch opens a change stream over roadmap updates.
	Watch(ctx context.Context) (ChangeStream, error)
}

type roadmapRepository struct {
	coll *mongo.Collection
}

func NewRoadmapRepository(db *mongo.Database) RoadmapRepository {
	return &roadmapRepository{coll: db.Collection(RoadmapsCollection)}
}

func (r *roadmapRepository) Create(ctx context.Context, rm *model.Roadmap) error {
	res, err := r.coll.InsertOne(ctx, rm)
	if err != nil {
		return fmt.Errorf("insert roadmap: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		rm.ID = id
	}
	return nil
}

func (r *roadmapRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Roadmap, error) {
	var rm model.Roadmap
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("roadmap", id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("find roadmap %s: %w", id.Hex(), err)
	}
	return &rm, nil
}

func (r *roadmapRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Roadmap, error) {
	var rm model.Roadmap
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&rm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find roadmap of user %s: %w", userID.Hex(), err)
	}
	return &rm, nil
}

func (r *roadmapRepository) SetSubtopicStatus(ctx context.Context, roadmapID primitive.ObjectID, topicID, subtopicID string, from []model.Status, to model.Status) (bool, error) {
	subFilter := bson.M{"s.id": subtopicID}
	if len(from) > 0 {
		subFilter["s.status"] = bson.M{"$in": from}
	} else {
		subFilter["s.status"] = bson.M{"$ne": to}
	}

	update := bson.M{"$set": bson.M{"topics.$[t].subtopics.$[s].status": to}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"t.id": topicID}, subFilter},
	})

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": roadmapID}, update, opts)
	if err != nil {
		return false, fmt.Errorf("set subtopic status %s/%s: %w", topicID, subtopicID, err)
	}
	if res.MatchedCount == 0 {
		return false, apperror.NotFound("roadmap", roadmapID.Hex())
	}
	return res.ModifiedCount > 0, nil
}

func (r *roadmapRepository) UpdateTopicStatuses(ctx context.Context, roadmapID primitive.ObjectID, statuses map[int]model.Status) error {
	if len(statuses) == 0 {
		return nil
	}
	set := bson.M{}
	for i, s := range statuses {
		set[fmt.Sprintf("topics.%d.status", i)] = s
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": roadmapID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update topic statuses %s: %w", roadmapID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("roadmap", roadmapID.Hex())
	}
	return nil
}

func (r *roadmapRepository) Watch(ctx context.Context) (ChangeStream, error) {
	return watchUpdates(ctx, r.coll)
}
