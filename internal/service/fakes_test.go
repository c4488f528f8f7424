package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

func newTestCache(t *testing.T) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client), mr
}

// ---------------------------------------------------------------------------
// questions / replies

type fakeQuestionRepo struct {
	mu        sync.Mutex
	docs      map[primitive.ObjectID]*model.Question
	listCalls int
	listErr   error
	// afterList 在结果已读出、返回之前调用，用来模拟慢查询
	afterList func(ctx context.Context, call int) error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{docs: make(map[primitive.ObjectID]*model.Question)}
}

func cloneQuestion(q *model.Question) model.Question {
	out := *q
	out.LikedBy = append([]string{}, q.LikedBy...)
	return out
}

func (r *fakeQuestionRepo) Create(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = primitive.NewObjectID()
	stored := cloneQuestion(q)
	r.docs[q.ID] = &stored
	return nil
}

func (r *fakeQuestionRepo) List(ctx context.Context, offset, limit int) ([]model.Question, error) {
	page, call, err := r.list(offset, limit)
	if err != nil {
		return nil, err
	}
	if r.afterList != nil {
		if err := r.afterList(ctx, call); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (r *fakeQuestionRepo) list(offset, limit int) ([]model.Question, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listCalls, r.listErr
	}
	all := make([]model.Question, 0, len(r.docs))
	for _, q := range r.docs {
		all = append(all, cloneQuestion(q))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].ID.Hex() > all[j].ID.Hex()
		}
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if offset >= len(all) {
		return []model.Question{}, r.listCalls, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, r.listCalls, nil
}

func (r *fakeQuestionRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

func (r *fakeQuestionRepo) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[id]
	return ok, nil
}

func (r *fakeQuestionRepo) IncrementReplyCount(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.docs[id]
	if !ok {
		return apperror.NotFound("question", id.Hex())
	}
	q.ReplyCount++
	return nil
}

func (r *fakeQuestionRepo) Like(_ context.Context, id primitive.ObjectID, userID string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("question", id.Hex())
	}
	if contains(q.LikedBy, userID) {
		return nil, apperror.Conflict(apperror.ErrAlreadyLiked, "You have already liked this question")
	}
	q.LikedBy = append(q.LikedBy, userID)
	q.Upvotes++
	out := cloneQuestion(q)
	return &out, nil
}

func (r *fakeQuestionRepo) Unlike(_ context.Context, id primitive.ObjectID, userID string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("question", id.Hex())
	}
	if !contains(q.LikedBy, userID) {
		return nil, apperror.Conflict(apperror.ErrNotYetLiked, "You have not liked this question yet")
	}
	q.LikedBy = remove(q.LikedBy, userID)
	q.Upvotes--
	out := cloneQuestion(q)
	return &out, nil
}

func (r *fakeQuestionRepo) get(id primitive.ObjectID) model.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneQuestion(r.docs[id])
}

type fakeReplyRepo struct {
	mu        sync.Mutex
	docs      map[primitive.ObjectID]*model.Reply
	listCalls int
}

func newFakeReplyRepo() *fakeReplyRepo {
	return &fakeReplyRepo{docs: make(map[primitive.ObjectID]*model.Reply)}
}

func cloneReply(r *model.Reply) model.Reply {
	out := *r
	out.LikedBy = append([]string{}, r.LikedBy...)
	return out
}

func (r *fakeReplyRepo) Create(_ context.Context, reply *model.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply.ID = primitive.NewObjectID()
	stored := cloneReply(reply)
	r.docs[reply.ID] = &stored
	return nil
}

func (r *fakeReplyRepo) ListByQuestion(_ context.Context, qid primitive.ObjectID, offset, limit int) ([]model.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var all []model.Reply
	for _, rep := range r.docs {
		if rep.QuestionID == qid {
			all = append(all, cloneReply(rep))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if offset >= len(all) {
		return []model.Reply{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeReplyRepo) Like(_ context.Context, id primitive.ObjectID, userID string) (*model.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("reply", id.Hex())
	}
	if contains(rep.LikedBy, userID) {
		return nil, apperror.Conflict(apperror.ErrAlreadyLiked, "You have already liked this reply")
	}
	rep.LikedBy = append(rep.LikedBy, userID)
	rep.Upvotes++
	out := cloneReply(rep)
	return &out, nil
}

func (r *fakeReplyRepo) Unlike(_ context.Context, id primitive.ObjectID, userID string) (*model.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("reply", id.Hex())
	}
	if !contains(rep.LikedBy, userID) {
		return nil, apperror.Conflict(apperror.ErrNotYetLiked, "You have not liked this reply yet")
	}
	rep.LikedBy = remove(rep.LikedBy, userID)
	rep.Upvotes--
	out := cloneReply(rep)
	return &out, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func remove(xs []string, x string) []string {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// identity

type fakeResolver struct {
	mu    sync.Mutex
	known map[string]model.UserInfo
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, uid string) model.UserInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if info, ok := f.known[uid]; ok {
		return info
	}
	return model.DefaultUserInfo()
}

// ---------------------------------------------------------------------------
// users / cases

type fakeUserRepo struct {
	mu   sync.Mutex
	docs map[string]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{docs: make(map[string]*model.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.docs[u.ExternalAuthID] = u
	}
	return r
}

func (r *fakeUserRepo) Upsert(_ context.Context, u *model.User) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.docs[u.ExternalAuthID]; ok {
		out := *existing
		return &out, false, nil
	}
	for _, existing := range r.docs {
		if existing.Email == u.Email {
			return nil, false, apperror.Conflict(apperror.ErrConflict, "email already registered")
		}
	}
	stored := *u
	stored.ID = primitive.NewObjectID()
	r.docs[u.ExternalAuthID] = &stored
	out := stored
	return &out, true, nil
}

func (r *fakeUserRepo) FindByExternalID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

type fakeCaseRepo struct {
	mu    sync.Mutex
	cases []model.Case
}

func (r *fakeCaseRepo) HasOpenCase(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cases {
		if c.Email == email && c.Status == model.CaseNotSolved {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCaseRepo) Create(_ context.Context, c *model.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = primitive.NewObjectID()
	r.cases = append(r.cases, *c)
	return nil
}

// ---------------------------------------------------------------------------
// roadmaps + change stream

type fakeStream struct {
	events chan primitive.ObjectID
	cur    primitive.ObjectID
	err    error
}

func (s *fakeStream) Next(ctx context.Context) bool {
	select {
	case id, ok := <-s.events:
		if !ok {
			return false
		}
		s.cur = id
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *fakeStream) DocumentID() primitive.ObjectID { return s.cur }
func (s *fakeStream) Err() error                     { return s.err }
func (s *fakeStream) Close(context.Context) error    { return nil }

// fakeRoadmapRepo emits an update event on every write, like a change stream would.
type fakeRoadmapRepo struct {
	mu          sync.Mutex
	docs        map[primitive.ObjectID]*model.Roadmap
	findErr     map[primitive.ObjectID]error
	watchErrs   []error
	topicWrites int
	active      *fakeStream
	opened      chan *fakeStream
}

func newFakeRoadmapRepo() *fakeRoadmapRepo {
	return &fakeRoadmapRepo{
		docs:    make(map[primitive.ObjectID]*model.Roadmap),
		findErr: make(map[primitive.ObjectID]error),
		opened:  make(chan *fakeStream, 16),
	}
}

func cloneRoadmap(rm *model.Roadmap) *model.Roadmap {
	out := *rm
	out.Topics = make([]model.Topic, len(rm.Topics))
	for i, t := range rm.Topics {
		t.Subtopics = append([]model.Subtopic{}, t.Subtopics...)
		out.Topics[i] = t
	}
	return &out
}

func (r *fakeRoadmapRepo) put(rm *model.Roadmap) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm.ID.IsZero() {
		rm.ID = primitive.NewObjectID()
	}
	r.docs[rm.ID] = cloneRoadmap(rm)
	return rm.ID
}

func (r *fakeRoadmapRepo) get(id primitive.ObjectID) *model.Roadmap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRoadmap(r.docs[id])
}

func (r *fakeRoadmapRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topicWrites
}

// emit must be called with mu held.
func (r *fakeRoadmapRepo) emit(id primitive.ObjectID) {
	if r.active == nil {
		return
	}
	select {
	case r.active.events <- id:
	default:
	}
}

func (r *fakeRoadmapRepo) Create(_ context.Context, rm *model.Roadmap) error {
	r.put(rm)
	return nil
}

func (r *fakeRoadmapRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Roadmap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.findErr[id]; err != nil {
		return nil, err
	}
	rm, ok := r.docs[id]
	if !ok {
		return nil, apperror.NotFound("roadmap", id.Hex())
	}
	return cloneRoadmap(rm), nil
}

func (r *fakeRoadmapRepo) FindByUserID(_ context.Context, userID primitive.ObjectID) (*model.Roadmap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rm := range r.docs {
		if rm.UserID == userID {
			return cloneRoadmap(rm), nil
		}
	}
	return nil, nil
}

func (r *fakeRoadmapRepo) SetSubtopicStatus(_ context.Context, id primitive.ObjectID, topicID, subtopicID string, from []model.Status, to model.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.docs[id]
	if !ok {
		return false, apperror.NotFound("roadmap", id.Hex())
	}
	ti, si := rm.FindSubtopic(topicID, subtopicID)
	if ti < 0 || si < 0 {
		return false, nil
	}
	cur := rm.Topics[ti].Subtopics[si].Status
	allowed := cur != to
	if len(from) > 0 {
		allowed = false
		for _, f := range from {
			if f == cur {
				allowed = true
			}
		}
	}
	if !allowed {
		return false, nil
	}
	rm.Topics[ti].Subtopics[si].Status = to
	r.emit(id)
	return true, nil
}

func (r *fakeRoadmapRepo) UpdateTopicStatuses(_ context.Context, id primitive.ObjectID, statuses map[int]model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.docs[id]
	if !ok {
		return apperror.NotFound("roadmap", id.Hex())
	}
	for i, s := range statuses {
		rm.Topics[i].Status = s
	}
	r.topicWrites++
	r.emit(id)
	return nil
}

func (r *fakeRoadmapRepo) Watch(context.Context) (repository.ChangeStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.watchErrs) > 0 {
		err := r.watchErrs[0]
		r.watchErrs = r.watchErrs[1:]
		return nil, err
	}
	s := &fakeStream{events: make(chan primitive.ObjectID, 64)}
	r.active = s
	r.opened <- s
	return s, nil
}
