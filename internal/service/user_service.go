package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
)

type CreateUserInput struct {
	ExternalAuthID string
	Name           string
	Email          string
}

type UserService interface {
	// CreateUser is an idempotent upsert keyed by the external auth id.
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, bool, error)
	GetUser(ctx context.Context, externalAuthID string) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, bool, error) {
	u := &model.User{
		ExternalAuthID: strings.TrimSpace(in.ExternalAuthID),
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
	}
	switch {
	case u.ExternalAuthID == "":
		return nil, false, apperror.Validation("firebaseUID", "firebaseUID is required")
	case u.Name == "":
		return nil, false, apperror.Validation("name", "name is required")
	case u.Email == "":
		return nil, false, apperror.Validation("email", "email is required")
	}
	return s.users.Upsert(ctx, u)
}

func (s *userService) GetUser(ctx context.Context, externalAuthID string) (*model.User, error) {
	if externalAuthID == "" {
		return nil, apperror.Validation("uid", "uid is required")
	}
	return s.users.FindByExternalID(ctx, externalAuthID)
}
