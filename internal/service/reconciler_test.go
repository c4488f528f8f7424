package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/d60-Lab/roadmap-api/internal/model"
)

func sub(id string, s model.Status) model.Subtopic {
	return model.Subtopic{ID: id, Name: id, Status: s}
}

func startReconciler(t *testing.T, repo *fakeRoadmapRepo, backoff time.Duration) *Reconciler {
	t.Helper()
	r := NewReconciler(repo, backoff)
	stop := r.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, stop(ctx))
	})
	return r
}

func waitStream(t *testing.T, repo *fakeRoadmapRepo) *fakeStream {
	t.Helper()
	select {
	case s := <-repo.opened:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler never subscribed")
		return nil
	}
}

func TestReconcileRoadmap_ConsistentDocumentIsNotWritten(t *testing.T) {
	repo := newFakeRoadmapRepo()
	id := repo.put(&model.Roadmap{Name: "go", Topics: []model.Topic{
		{ID: "t1", Status: model.StatusCompleted, Subtopics: []model.Subtopic{sub("a", model.StatusCompleted)}},
		{ID: "t2", Status: model.StatusNotStarted},
	}})
	r := NewReconciler(repo, time.Second)

	changed, err := r.ReconcileRoadmap(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, repo.writes())
}

func TestReconcileRoadmap_OnlyChangedTopicsWritten(t *testing.T) {
	repo := newFakeRoadmapRepo()
	id := repo.put(&model.Roadmap{Name: "go", Topics: []model.Topic{
		{ID: "t1", Status: model.StatusNotStarted, Subtopics: []model.Subtopic{
			sub("a", model.StatusCompleted), sub("b", model.StatusNotStarted),
		}},
		{ID: "t2", Status: model.StatusCompleted, Subtopics: []model.Subtopic{sub("c", model.StatusCompleted)}},
	}})
	r := NewReconciler(repo, time.Second)

	changed, err := r.ReconcileRoadmap(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, changed)

	got := repo.get(id)
	assert.Equal(t, model.StatusInProgress, got.Topics[0].Status)
	assert.Equal(t, model.StatusCompleted, got.Topics[1].Status)

	changed, err = r.ReconcileRoadmap(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, repo.writes())
}

func TestReconcileRoadmap_MissingDocumentIsSkipped(t *testing.T) {
	r := NewReconciler(newFakeRoadmapRepo(), time.Second)
	changed, err := r.ReconcileRoadmap(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReconciler_CompletingLastSubtopicCompletesTopic(t *testing.T) {
	repo := newFakeRoadmapRepo()
	users := newFakeUserRepo(&model.User{ExternalAuthID: "U1", Name: "u", Email: "u@x.io"})
	owner, _ := users.FindByExternalID(context.Background(), "U1")
	id := repo.put(&model.Roadmap{Name: "go", UserID: owner.ID, Topics: []model.Topic{
		{ID: "T", Status: model.StatusInProgress, Subtopics: []model.Subtopic{
			sub("s1", model.StatusCompleted), sub("s2", model.StatusNotStarted),
		}},
	}})

	r := startReconciler(t, repo, 10*time.Millisecond)
	waitStream(t, repo)

	svc := NewRoadmapService(users, repo)
	require.NoError(t, svc.CompleteSubtopic(context.Background(), SubtopicRef{UID: "U1", TopicID: "T", SubtopicID: "s2"}))

	require.Eventually(t, func() bool {
		return repo.get(id).Topics[0].Status == model.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	// 自身写入触发的事件再处理一次，不会再写
	require.Eventually(t, func() bool { return r.Stats().Processed >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, repo.writes())
	assert.Equal(t, int64(1), r.Stats().Corrected)
}

func TestReconciler_ResubscribesAfterFailures(t *testing.T) {
	repo := newFakeRoadmapRepo()
	repo.watchErrs = []error{errors.New("not a replica set")}

	r := startReconciler(t, repo, 10*time.Millisecond)
	first := waitStream(t, repo)
	assert.Equal(t, int64(1), r.Stats().Subscribes)

	// 流被服务端关闭后，等待 backoff 重新订阅
	close(first.events)
	second := waitStream(t, repo)
	require.NotSame(t, first, second)

	id := repo.put(&model.Roadmap{Name: "go", Topics: []model.Topic{
		{ID: "T", Status: model.StatusNotStarted, Subtopics: []model.Subtopic{sub("a", model.StatusInProgress)}},
	}})
	second.events <- id

	require.Eventually(t, func() bool {
		return repo.get(id).Topics[0].Status == model.StatusInProgress
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), r.Stats().Subscribes)
}

func TestReconciler_DocumentFailureDoesNotStopLoop(t *testing.T) {
	repo := newFakeRoadmapRepo()
	broken := repo.put(&model.Roadmap{Name: "broken"})
	healthy := repo.put(&model.Roadmap{Name: "ok", Topics: []model.Topic{
		{ID: "T", Status: model.StatusNotStarted, Subtopics: []model.Subtopic{sub("a", model.StatusCompleted)}},
	}})
	repo.findErr[broken] = errStoreDown

	r := startReconciler(t, repo, time.Hour)
	stream := waitStream(t, repo)
	stream.events <- broken
	stream.events <- healthy

	require.Eventually(t, func() bool {
		return repo.get(healthy).Topics[0].Status == model.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, int64(1), stats.Subscribes)
}

func TestReconciler_StopReturnsPromptly(t *testing.T) {
	repo := newFakeRoadmapRepo()
	repo.watchErrs = []error{errors.New("down")}
	r := NewReconciler(repo, time.Hour)
	stop := r.Start()

	// 处于 backoff 等待中也应立即退出
	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.Equal(t, int64(0), r.Stats().Subscribes)
}

func TestNewReconciler_DefaultBackoff(t *testing.T) {
	r := NewReconciler(newFakeRoadmapRepo(), 0)
	assert.Equal(t, 5*time.Second, r.backoff)
}
