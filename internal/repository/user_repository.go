package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
)

type UserRepository interface {
	// Upsert inserts the user unless one with the same external id exists.
	// It returns the stored document and whether it was created by this call.
	Upsert(ctx context.Context, u *model.User) (*model.User, bool, error)
	FindByExternalID(ctx context.Context, externalAuthID string) (*model.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(UsersCollection)}
}

func (r *userRepository) Upsert(ctx context.Context, u *model.User) (*model.User, bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"firebaseUID": u.ExternalAuthID}
	update := bson.M{"$setOnInsert": bson.M{
		"firebaseUID": u.ExternalAuthID,
		"name":        strings.TrimSpace(u.Name),
		"email":       strings.ToLower(strings.TrimSpace(u.Email)),
		"createdAt":   now,
		"updatedAt":   now,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, false, apperror.Conflict(apperror.ErrConflict, "email already registered")
		}
		return nil, false, fmt.Errorf("upsert user %s: %w", u.ExternalAuthID, err)
	}

	stored, err := r.FindByExternalID(ctx, u.ExternalAuthID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.UpsertedCount == 1, nil
}

func (r *userRepository) FindByExternalID(ctx context.Context, externalAuthID string) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"firebaseUID": externalAuthID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("user", externalAuthID)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", externalAuthID, err)
	}
	return &u, nil
}
