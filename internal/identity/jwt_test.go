package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
)

type stubDirectory map[string]*model.User

func (d stubDirectory) FindByExternalID(_ context.Context, id string) (*model.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

const testSecret = "test-secret"

func TestJWTProvider_VerifyToken(t *testing.T) {
	p := NewJWTProvider(testSecret, nil)
	ctx := context.Background()

	tok, err := IssueToken(testSecret, "uid-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := p.VerifyToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestJWTProvider_RejectsBadTokens(t *testing.T) {
	p := NewJWTProvider(testSecret, nil)
	ctx := context.Background()

	wrongKey, err := IssueToken("other-secret", "uid-1", "", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "uid-1", "", -time.Minute)
	require.NoError(t, err)
	noSubject, err := IssueToken(testSecret, "", "", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "uid-1"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":    "not-a-jwt",
		"wrong key":  wrongKey,
		"expired":    expired,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.VerifyToken(ctx, tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTProvider_GetUser(t *testing.T) {
	dir := stubDirectory{"uid-1": {ExternalAuthID: "uid-1", Name: "Ada", Email: "ada@example.com"}}
	p := NewJWTProvider(testSecret, dir)

	prof, err := p.GetUser(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", prof.DisplayName)
	assert.Empty(t, prof.PhotoURL)

	_, err = p.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
