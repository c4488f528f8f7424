package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

const (
	maxTitleLen       = 200
	enrichConcurrency = 8
	pageLoadTimeout   = 10 * time.Second
)

// UserInfoResolver 解析作者展示信息，失败时返回默认匿名身份
type UserInfoResolver interface {
	Resolve(ctx context.Context, uid string) model.UserInfo
}

type CreateQuestionInput struct {
	Title    string
	Body     string
	AuthorID string
}

type CreateReplyInput struct {
	Body     string
	AuthorID string
}

// QnAService 问答服务：列表走 cache-aside，写操作后同步失效缓存
type QnAService interface {
	CreateQuestion(ctx context.Context, in CreateQuestionInput) (*model.QuestionView, error)
	ListQuestions(ctx context.Context, page Page) ([]model.QuestionView, error)
	CreateReply(ctx context.Context, questionID string, in CreateReplyInput) (*model.ReplyView, error)
	ListReplies(ctx context.Context, questionID string, page Page) ([]model.ReplyView, error)
	VoteQuestion(ctx context.Context, id string, action model.VoteAction, userID string) (*model.Question, error)
	VoteReply(ctx context.Context, id string, action model.VoteAction, userID string) (*model.Reply, error)
}

type qnaService struct {
	questions   repository.QuestionRepository
	replies     repository.ReplyRepository
	cache       cache.Cache
	resolver    UserInfoResolver
	invalidator *Invalidator
	ttl         time.Duration
	loads       singleflight.Group
}

func NewQnAService(questions repository.QuestionRepository, replies repository.ReplyRepository,
	c cache.Cache, resolver UserInfoResolver, ttl time.Duration,
) QnAService {
	return &qnaService{
		questions:   questions,
		replies:     replies,
		cache:       c,
		resolver:    resolver,
		invalidator: NewInvalidator(c),
		ttl:         ttl,
	}
}

func (s *qnaService) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*model.QuestionView, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	switch {
	case body == "":
		return nil, apperror.Validation("body", "body is required")
	case len([]rune(title)) > maxTitleLen:
		return nil, apperror.Validation("title", "title must be at most 200 characters")
	case in.AuthorID == "":
		return nil, apperror.Validation("userId", "userId is required")
	}

	q := &model.Question{
		Title:     title,
		Body:      body,
		AuthorID:  in.AuthorID,
		LikedBy:   []string{},
		Timestamp: time.Now().UTC(),
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	s.invalidator.QuestionCreated(ctx)

	return &model.QuestionView{Question: *q, UserInfo: s.resolver.Resolve(ctx, q.AuthorID)}, nil
}

func (s *qnaService) ListQuestions(ctx context.Context, page Page) ([]model.QuestionView, error) {
	key := cache.QuestionsPageKey(page.Number, page.Limit)
	return readThrough(ctx, s, key, func(ctx context.Context) ([]model.QuestionView, error) {
		rows, err := s.questions.List(ctx, page.Offset(), page.Limit)
		if err != nil {
			return nil, err
		}
		views := make([]model.QuestionView, len(rows))
		err = s.enrich(ctx, len(rows), func(i int, info model.UserInfo) {
			views[i] = model.QuestionView{Question: rows[i], UserInfo: info}
		}, func(i int) string { return rows[i].AuthorID })
		return views, err
	})
}

func (s *qnaService) CreateReply(ctx context.Context, questionID string, in CreateReplyInput) (*model.ReplyView, error) {
	qid, err := parseObjectID("questionId", questionID)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperror.Validation("body", "body is required")
	}
	if in.AuthorID == "" {
		return nil, apperror.Validation("userId", "userId is required")
	}

	exists, err := s.questions.Exists(ctx, qid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("question", questionID)
	}

	reply := &model.Reply{
		Body:       body,
		QuestionID: qid,
		AuthorID:   in.AuthorID,
		LikedBy:    []string{},
		Timestamp:  time.Now().UTC(),
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}
	if err := s.questions.IncrementReplyCount(ctx, qid); err != nil {
		// 回复已落库，仍需失效回复分页
		s.invalidator.ReplyCreated(ctx, qid.Hex())
		return nil, err
	}
	s.invalidator.ReplyCreated(ctx, qid.Hex())

	return &model.ReplyView{Reply: *reply, UserInfo: s.resolver.Resolve(ctx, reply.AuthorID)}, nil
}

func (s *qnaService) ListReplies(ctx context.Context, questionID string, page Page) ([]model.ReplyView, error) {
	qid, err := parseObjectID("questionId", questionID)
	if err != nil {
		return nil, err
	}
	key := cache.RepliesPageKey(qid.Hex(), page.Number, page.Limit)
	return readThrough(ctx, s, key, func(ctx context.Context) ([]model.ReplyView, error) {
		rows, err := s.replies.ListByQuestion(ctx, qid, page.Offset(), page.Limit)
		if err != nil {
			return nil, err
		}
		views := make([]model.ReplyView, len(rows))
		err = s.enrich(ctx, len(rows), func(i int, info model.UserInfo) {
			views[i] = model.ReplyView{Reply: rows[i], UserInfo: info}
		}, func(i int) string { return rows[i].AuthorID })
		return views, err
	})
}

func (s *qnaService) VoteQuestion(ctx context.Context, id string, action model.VoteAction, userID string) (*model.Question, error) {
	oid, err := validateVote(id, action, userID)
	if err != nil {
		return nil, err
	}

	var q *model.Question
	if action == model.VoteInc {
		q, err = s.questions.Like(ctx, oid, userID)
	} else {
		q, err = s.questions.Unlike(ctx, oid, userID)
	}
	if err != nil {
		return nil, err
	}
	s.invalidator.QuestionVoted(ctx)
	return q, nil
}

func (s *qnaService) VoteReply(ctx context.Context, id string, action model.VoteAction, userID string) (*model.Reply, error) {
	oid, err := validateVote(id, action, userID)
	if err != nil {
		return nil, err
	}

	var r *model.Reply
	if action == model.VoteInc {
		r, err = s.replies.Like(ctx, oid, userID)
	} else {
		r, err = s.replies.Unlike(ctx, oid, userID)
	}
	if err != nil {
		return nil, err
	}
	s.invalidator.ReplyVoted(ctx, r.QuestionID.Hex())
	return r, nil
}

// readThrough serves a page from the cache or loads, enriches and caches it.
// A hit is returned verbatim. Cache errors degrade to the store and are only logged.
//
// Concurrent misses on the same key share one load. The load is detached from
// any single caller's context, so one client going away does not fail the
// others; each caller still stops waiting when its own ctx is done. Loads are
// keyed by invalidation epoch: a read that starts after a mutation never joins
// a load that started before it, and such a load does not write its snapshot back.
func readThrough[T any](ctx context.Context, s *qnaService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out []T
		uErr := json.Unmarshal(data, &out)
		if uErr == nil {
			return out, nil
		}
		logger.Warn("cached page is corrupt, reloading", zap.String("key", key), zap.Error(uErr))
	case !errors.Is(err, cache.ErrMiss):
		logger.Warn("cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}

	epoch := s.invalidator.Epoch()
	ch := s.loads.DoChan(fmt.Sprintf("%s@%d", key, epoch), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pageLoadTimeout)
		defer cancel()

		rows, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if s.invalidator.Epoch() != epoch {
			logger.Debug("page changed during load, snapshot not cached", zap.String("key", key))
			return rows, nil
		}
		if payload, mErr := json.Marshal(rows); mErr == nil {
			if sErr := s.cache.Set(lctx, key, payload, s.ttl); sErr != nil {
				logger.Warn("cache write failed", zap.String("key", key), zap.Error(sErr))
			}
		}
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	}
}

// enrich resolves author info for n records in parallel and hands each result to set.
func (s *qnaService) enrich(ctx context.Context, n int, set func(i int, info model.UserInfo), author func(i int) string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			set(i, s.resolver.Resolve(gctx, author(i)))
			return nil
		})
	}
	return g.Wait()
}

func validateVote(id string, action model.VoteAction, userID string) (primitive.ObjectID, error) {
	if !action.Valid() {
		return primitive.NilObjectID, apperror.Validation("action", "Invalid action")
	}
	if userID == "" {
		return primitive.NilObjectID, apperror.Validation("userId", "userId is required")
	}
	return parseObjectID("id", id)
}

func parseObjectID(field, raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation(field, "invalid "+field)
	}
	return oid, nil
}
