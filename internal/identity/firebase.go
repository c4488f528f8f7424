package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/d60-Lab/roadmap-api/internal/config"
)

type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider 使用服务账号文件初始化 Firebase Admin；文件为空时走 ADC
func NewFirebaseProvider(ctx context.Context, cfg config.AuthConfig) (Provider, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &firebaseProvider{client: client}, nil
}

func (p *firebaseProvider) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	tok, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims := &Claims{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		claims.Email = email
	}
	return claims, nil
}

func (p *firebaseProvider) GetUser(ctx context.Context, uid string) (*Profile, error) {
	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("firebase get user %s: %w", uid, err)
	}
	return &Profile{
		UID:         rec.UID,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		Email:       rec.Email,
	}, nil
}
