package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
)

// SubtopicRef 定位某个用户路线中的一个子主题
type SubtopicRef struct {
	UID        string
	TopicID    string
	SubtopicID string
}

type RoadmapService interface {
	SaveRoadmap(ctx context.Context, uid, name string, topics []model.Topic) (*model.Roadmap, error)
	// GetRoadmap returns (nil, nil) when the user has no roadmap yet.
	GetRoadmap(ctx context.Context, uid string) (*model.Roadmap, error)
	// StartSubtopic moves a not-started subtopic to in-progress; other states are left alone.
	StartSubtopic(ctx context.Context, ref SubtopicRef) error
	CompleteSubtopic(ctx context.Context, ref SubtopicRef) error
}

type roadmapService struct {
	users    repository.UserRepository
	roadmaps repository.RoadmapRepository
}

func NewRoadmapService(users repository.UserRepository, roadmaps repository.RoadmapRepository) RoadmapService {
	return &roadmapService{users: users, roadmaps: roadmaps}
}

func (s *roadmapService) SaveRoadmap(ctx context.Context, uid, name string, topics []model.Topic) (*model.Roadmap, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("name", "name is required")
	}
	user, err := s.users.FindByExternalID(ctx, uid)
	if err != nil {
		return nil, err
	}
	existing, err := s.roadmaps.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict(apperror.ErrConflict, "roadmap already exists for user")
	}

	rm := &model.Roadmap{Name: name, UserID: user.ID, Topics: normalizeTopics(topics)}
	rm.ReconcileTopics()
	if err := s.roadmaps.Create(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *roadmapService) GetRoadmap(ctx context.Context, uid string) (*model.Roadmap, error) {
	if uid == "" {
		return nil, apperror.Validation("uid", "uid is required")
	}
	user, err := s.users.FindByExternalID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.roadmaps.FindByUserID(ctx, user.ID)
}

func (s *roadmapService) StartSubtopic(ctx context.Context, ref SubtopicRef) error {
	return s.transition(ctx, ref, []model.Status{model.StatusNotStarted}, model.StatusInProgress)
}

func (s *roadmapService) CompleteSubtopic(ctx context.Context, ref SubtopicRef) error {
	return s.transition(ctx, ref, []model.Status{model.StatusNotStarted, model.StatusInProgress}, model.StatusCompleted)
}

// transition 原子地更新子主题状态；Topic 状态交给 Reconciler 重算
func (s *roadmapService) transition(ctx context.Context, ref SubtopicRef, from []model.Status, to model.Status) error {
	switch {
	case ref.UID == "":
		return apperror.Validation("uid", "Missing required fields.")
	case ref.TopicID == "":
		return apperror.Validation("topicId", "Missing required fields.")
	case ref.SubtopicID == "":
		return apperror.Validation("subtopicId", "Missing required fields.")
	}

	user, err := s.users.FindByExternalID(ctx, ref.UID)
	if err != nil {
		return err
	}
	rm, err := s.roadmaps.FindByUserID(ctx, user.ID)
	if err != nil {
		return err
	}
	if rm == nil {
		return apperror.NotFound("roadmap of user", ref.UID)
	}
	ti, si := rm.FindSubtopic(ref.TopicID, ref.SubtopicID)
	if ti < 0 {
		return apperror.NotFound("topic", ref.TopicID)
	}
	if si < 0 {
		return apperror.NotFound("subtopic", ref.SubtopicID)
	}

	modified, err := s.roadmaps.SetSubtopicStatus(ctx, rm.ID, ref.TopicID, ref.SubtopicID, from, to)
	if err != nil {
		return err
	}
	logger.Debug("subtopic status transition",
		zap.String("roadmap", rm.ID.Hex()),
		zap.String("subtopic", ref.SubtopicID),
		zap.String("to", string(to)),
		zap.Bool("modified", modified),
	)
	return nil
}

// normalizeTopics 补全缺失的 id 与非法状态
func normalizeTopics(topics []model.Topic) []model.Topic {
	out := make([]model.Topic, len(topics))
	for i, t := range topics {
		t.Name = strings.TrimSpace(t.Name)
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		subs := make([]model.Subtopic, len(t.Subtopics))
		for j, st := range t.Subtopics {
			st.Name = strings.TrimSpace(st.Name)
			if st.ID == "" {
				st.ID = uuid.NewString()
			}
			if !st.Status.Valid() {
				st.Status = model.StatusNotStarted
			}
			subs[j] = st
		}
		t.Subtopics = subs
		out[i] = t
	}
	return out
}
