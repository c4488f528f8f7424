package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/roadmap-api/internal/model"
)

// Directory looks up locally stored users; the users repository satisfies it.
type Directory interface {
	FindByExternalID(ctx context.Context, externalAuthID string) (*model.User, error)
}

// TokenClaims HS256 令牌载荷，sub 即外部用户 ID
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// jwtProvider 用于本地开发和测试环境，替代 Firebase
type jwtProvider struct {
	secret    []byte
	directory Directory
}

func NewJWTProvider(secret string, directory Directory) Provider {
	return &jwtProvider{secret: []byte(secret), directory: directory}
}

func (p *jwtProvider) VerifyToken(_ context.Context, token string) (*Claims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Claims{UID: claims.Subject, Email: claims.Email}, nil
}

func (p *jwtProvider) GetUser(ctx context.Context, uid string) (*Profile, error) {
	if p.directory == nil {
		return nil, errors.New("jwt provider: no user directory")
	}
	u, err := p.directory.FindByExternalID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &Profile{UID: uid, DisplayName: u.Name, Email: u.Email}, nil
}

// IssueToken 签发 HS256 令牌，供本地调试和测试使用
func IssueToken(secret, uid, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
