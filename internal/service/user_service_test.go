package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
)

func TestCreateUser_IsIdempotent(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()
	in := CreateUserInput{ExternalAuthID: "U1", Name: " Ada ", Email: "Ada@X.io"}

	u, created, err := svc.CreateUser(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@x.io", u.Email)

	again, created, err := svc.CreateUser(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	for _, in := range []CreateUserInput{
		{Name: "a", Email: "a@x.io"},
		{ExternalAuthID: "U", Email: "a@x.io"},
		{ExternalAuthID: "U", Name: "a"},
	} {
		_, _, err := svc.CreateUser(context.Background(), in)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}
}

func TestGetUser(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(&model.User{ExternalAuthID: "U1", Name: "Ada", Email: "ada@x.io"}))
	ctx := context.Background()

	u, err := svc.GetUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = svc.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.GetUser(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateCase_OneOpenCasePerEmail(t *testing.T) {
	repo := &fakeCaseRepo{}
	svc := NewCaseService(repo)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, CreateCaseInput{Name: "Ada", Email: "ada@x.io", Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, model.CaseNotSolved, c.Status)
	assert.False(t, c.ID.IsZero())

	_, err = svc.CreateCase(ctx, CreateCaseInput{Name: "Ada", Email: "ADA@x.io", Message: "again"})
	assert.ErrorIs(t, err, apperror.ErrOpenCaseExists)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// 工单解决后允许再次提交
	repo.cases[0].Status = model.CaseSolved
	_, err = svc.CreateCase(ctx, CreateCaseInput{Name: "Ada", Email: "ada@x.io", Message: "new issue"})
	require.NoError(t, err)
	assert.Len(t, repo.cases, 2)
}

func TestCreateCase_Validation(t *testing.T) {
	svc := NewCaseService(&fakeCaseRepo{})
	_, err := svc.CreateCase(context.Background(), CreateCaseInput{Email: "a@x.io"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.CreateCase(context.Background(), CreateCaseInput{Name: "a"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
