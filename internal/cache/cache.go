package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/roadmap-api/internal/config"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Cache is the key/value store used as a read-through, write-invalidate layer.
// Entries are derived snapshots and never authoritative.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePattern removes every key matching a glob pattern and reports how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

const scanBatch = 500

type redisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) Cache {
	return &redisCache{client: client}
}

// NewRedisClient 创建 Redis 客户端并 Ping 验证连通性
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePattern collects every match with SCAN, then deletes them in batches.
// Deleting while the cursor is still moving can skip keys on servers with
// offset cursors, so the scan finishes first. Cost is O(keyspace) per call.
func (c *redisCache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor uint64
		keys   []string
		seen   = make(map[string]struct{})
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		// SCAN 可能重复返回同一个 key
		for _, k := range batch {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	deleted := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del %s: %w", pattern, err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

type nopCache struct{}

// NewNopCache 永远未命中的缓存，用于关闭缓存的对照场景
func NewNopCache() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (nopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nopCache) DeletePattern(context.Context, string) (int, error)       { return 0, nil }
