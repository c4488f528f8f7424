package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
)

type CreateCaseInput struct {
	Name    string
	Email   string
	Message string
}

type CaseService interface {
	CreateCase(ctx context.Context, in CreateCaseInput) (*model.Case, error)
}

type caseService struct {
	cases repository.CaseRepository
}

func NewCaseService(cases repository.CaseRepository) CaseService {
	return &caseService{cases: cases}
}

// CreateCase 同一邮箱已有未解决工单时返回 ErrOpenCaseExists
func (s *caseService) CreateCase(ctx context.Context, in CreateCaseInput) (*model.Case, error) {
	c := &model.Case{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Message: strings.TrimSpace(in.Message),
		Status:  model.CaseNotSolved,
	}
	if c.Name == "" {
		return nil, apperror.Validation("name", "name is required")
	}
	if c.Email == "" {
		return nil, apperror.Validation("email", "email is required")
	}

	open, err := s.cases.HasOpenCase(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperror.Conflict(apperror.ErrOpenCaseExists, "A Case already exist for the User")
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
