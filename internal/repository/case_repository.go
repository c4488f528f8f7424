package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/d60-Lab/roadmap-api/internal/model"
)

type CaseRepository interface {
	HasOpenCase(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, c *model.Case) error
}

type caseRepository struct {
	coll *mongo.Collection
}

func NewCaseRepository(db *mongo.Database) CaseRepository {
	return &caseRepository{coll: db.Collection(CasesCollection)}
}

func (r *caseRepository) HasOpenCase(ctx context.Context, email string) (bool, error) {
	filter := bson.M{"email": email, "status": model.CaseNotSolved}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count open cases: %w", err)
	}
	return n > 0, nil
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) error {
	if c.Status == "" {
		c.Status = model.CaseNotSolved
	}
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}
