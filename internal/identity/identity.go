package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken 令牌无效或过期
var ErrInvalidToken = errors.New("invalid token")

// Claims 是通过校验的令牌中与业务相关的部分
type Claims struct {
	UID   string
	Email string
}

// Profile 是身份提供方返回的用户展示信息
type Profile struct {
	UID         string
	DisplayName string
	PhotoURL    string
	Email       string
}

// Provider verifies bearer tokens and resolves user display metadata.
type Provider interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
	GetUser(ctx context.Context, uid string) (*Profile, error)
}
