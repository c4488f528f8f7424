package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

// Resolver turns an external user id into display info, backed by a per-user cache entry.
// It never fails: any provider error degrades to the anonymous identity.
type Resolver struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
}

func NewResolver(provider Provider, c cache.Cache, ttl time.Duration) *Resolver {
	return &Resolver{provider: provider, cache: c, ttl: ttl}
}

func (r *Resolver) Resolve(ctx context.Context, uid string) model.UserInfo {
	if uid == "" {
		return model.DefaultUserInfo()
	}

	key := cache.UserKey(uid)
	if r.cache != nil {
		data, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			var info model.UserInfo
			if uErr := json.Unmarshal(data, &info); uErr == nil {
				return info
			}
		case !errors.Is(err, cache.ErrMiss):
			logger.Warn("user info cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	profile, err := r.provider.GetUser(ctx, uid)
	if err != nil {
		logger.Warn("resolve user info failed, using default", zap.String("uid", uid), zap.Error(err))
		return model.DefaultUserInfo()
	}

	info := model.DefaultUserInfo()
	if profile.DisplayName != "" {
		info.Name = profile.DisplayName
	}
	if profile.PhotoURL != "" {
		info.Photo = profile.PhotoURL
	}

	if r.cache != nil {
		if payload, err := json.Marshal(info); err == nil {
			if err := r.cache.Set(ctx, key, payload, r.ttl); err != nil {
				logger.Warn("user info cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return info
}
