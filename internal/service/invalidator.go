package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

// Invalidator purges list snapshots that a committed mutation made stale.
// It runs synchronously after the store write; failures are logged and left to TTL expiry.
//
// Every purge bumps an epoch. Page loads capture it when they start and skip
// writing back a snapshot once it has moved.
type Invalidator struct {
	cache cache.Cache
	epoch atomic.Uint64
}

func NewInvalidator(c cache.Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// QuestionCreated 新问题会挪动所有分页窗口
func (i *Invalidator) QuestionCreated(ctx context.Context) {
	i.purge(ctx, "question_created", cache.QuestionsPattern())
}

// ReplyCreated 清理该问题的回复分页，以及携带 replyCount 的问题分页
func (i *Invalidator) ReplyCreated(ctx context.Context, questionID string) {
	i.purge(ctx, "reply_created", cache.RepliesPattern(questionID))
	i.purge(ctx, "reply_created", cache.QuestionsPattern())
}

func (i *Invalidator) QuestionVoted(ctx context.Context) {
	i.purge(ctx, "question_voted", cache.QuestionsPattern())
}

func (i *Invalidator) ReplyVoted(ctx context.Context, questionID string) {
	i.purge(ctx, "reply_voted", cache.RepliesPattern(questionID))
}

// Epoch 当前失效代数
func (i *Invalidator) Epoch() uint64 { return i.epoch.Load() }

func (i *Invalidator) purge(ctx context.Context, reason, pattern string) {
	i.epoch.Add(1)
	n, err := i.cache.DeletePattern(ctx, pattern)
	if err != nil {
		logger.Error("cache invalidation failed",
			zap.String("reason", reason),
			zap.String("pattern", pattern),
			zap.Int("deleted", n),
			zap.Error(err),
		)
		return
	}
	logger.Debug("cache invalidated", zap.String("reason", reason), zap.String("pattern", pattern), zap.Int("deleted", n))
}
