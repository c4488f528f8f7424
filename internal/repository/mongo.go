package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/d60-Lab/roadmap-api/internal/config"
)

// 集合名
const (
	UsersCollection     = "users"
	RoadmapsCollection  = "roadmaps"
	QuestionsCollection = "questions"
	RepliesCollection   = "replies"
	CasesCollection     = "cases"
)

// Connect 建立 MongoDB 连接并 ping 主节点
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes 创建各集合所需索引（幂等）
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "firebaseUID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RoadmapsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		QuestionsCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		RepliesCollection: {
			{Keys: bson.D{{Key: "questionId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		CasesCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "status", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Repositories 聚合所有仓储，便于注入
type Repositories struct {
	Users     UserRepository
	Roadmaps  RoadmapRepository
	Questions QuestionRepository
	Replies   ReplyRepository
	Cases     CaseRepository
}

func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Users:     NewUserRepository(db),
		Roadmaps:  NewRoadmapRepository(db),
		Questions: NewQuestionRepository(db),
		Replies:   NewReplyRepository(db),
		Cases:     NewCaseRepository(db),
	}
}
