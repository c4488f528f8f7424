package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/internal/config"
	"github.com/d60-Lab/roadmap-api/internal/identity"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/repository"
	"github.com/d60-Lab/roadmap-api/internal/service"
)

type request struct {
	page  int
	limit int
}

// countingQuestions 统计落到 MongoDB 的分页查询次数
type countingQuestions struct {
	repository.QuestionRepository
	lists atomic.Int64
}

func (c *countingQuestions) List(ctx context.Context, offset, limit int) ([]model.Question, error) {
	c.lists.Add(1)
	return c.QuestionRepository.List(ctx, offset, limit)
}

// slowProvider 模拟身份服务的网络往返
type slowProvider struct {
	delay time.Duration
	calls atomic.Int64
}

func (p *slowProvider) VerifyToken(context.Context, string) (*identity.Claims, error) {
	return nil, identity.ErrInvalidToken
}

func (p *slowProvider) GetUser(_ context.Context, uid string) (*identity.Profile, error) {
	p.calls.Add(1)
	time.Sleep(p.delay)
	return &identity.Profile{UID: uid, DisplayName: "user " + uid, PhotoURL: "https://img.example/" + uid}, nil
}

func main() {
	ctx := context.Background()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	const (
		questionCount = 20000
		authorCount   = 500
		requestCount  = 6000
		ttl           = 10 * time.Minute
		identityDelay = 2 * time.Millisecond
	)

	client, db, err := repository.Connect(ctx, config.MongoConfig{URI: mongoURI, Database: "roadmap_bench", ConnectTimeout: 10 * time.Second})
	mustDo(err)
	defer client.Disconnect(ctx)

	mustDo(db.Collection(repository.QuestionsCollection).Drop(ctx))
	mustDo(repository.EnsureIndexes(ctx, db))

	fmt.Println("Setting up test data...")
	docs := make([]interface{}, questionCount)
	base := time.Now().UTC()
	for i := range docs {
		docs[i] = model.Question{
			ID:         primitive.NewObjectID(),
			Title:      fmt.Sprintf("question %d", i),
			Body:       strings.Repeat("lorem ipsum ", 20),
			AuthorID:   "author_" + strconv.Itoa(i%authorCount),
			Upvotes:    0,
			LikedBy:    []string{},
			ReplyCount: i % 7,
			Timestamp:  base.Add(-time.Duration(i) * time.Second),
		}
	}
	for start := 0; start < len(docs); start += 1000 {
		end := min(start+1000, len(docs))
		_, err := db.Collection(repository.QuestionsCollection).InsertMany(ctx, docs[start:end])
		mustDo(err)
	}
	fmt.Printf("Test data ready: %d questions by %d authors\n", questionCount, authorCount)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	reqs := makeRequests(requestCount)

	noCache := runScenario(ctx, db, rdb, cache.NewNopCache(), ttl, identityDelay, reqs, false)
	cached := runScenario(ctx, db, rdb, cache.NewRedisCache(rdb), ttl, identityDelay, reqs, true)

	fmt.Printf("\nQuestion list latency (%d req, %d questions, MongoDB + Redis)\n", requestCount, questionCount)
	for _, r := range []struct {
		name string
		res  scenarioResult
	}{{"No cache", noCache}, {"Redis list cache", cached}} {
		fmt.Printf("%-18s avg=%v p95=%v p99=%v db_list=%d identity_calls=%d cache_keys=%d mem=%s\n",
			r.name, avg(r.res.durations), pct(r.res.durations, 0.95), pct(r.res.durations, 0.99),
			r.res.listQueries, r.res.identityCalls, r.res.cacheKeys, formatBytes(r.res.memoryBytes),
		)
	}
}

type scenarioResult struct {
	durations     []time.Duration
	listQueries   int64
	identityCalls int64
	cacheKeys     int
	memoryBytes   int64
}

func runScenario(ctx context.Context, db *mongo.Database, rdb *redis.Client, c cache.Cache,
	ttl, identityDelay time.Duration, reqs []request, warm bool,
) scenarioResult {
	rdb.FlushAll(ctx)

	questions := &countingQuestions{QuestionRepository: repository.NewQuestionRepository(db)}
	provider := &slowProvider{delay: identityDelay}
	resolver := identity.NewResolver(provider, c, ttl)
	svc := service.NewQnAService(questions, repository.NewReplyRepository(db), c, resolver, ttl)

	call := func(r request) {
		if _, err := svc.ListQuestions(ctx, service.Page{Number: r.page, Limit: r.limit}); err != nil {
			panic(err)
		}
	}

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			call(r)
		}
		fmt.Println(" done")
	}
	questions.lists.Store(0)
	provider.calls.Store(0)

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		call(r)
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := rdb.DBSize(ctx).Result()
	var memBytes int64
	if info, err := rdb.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}

	return scenarioResult{
		durations:     out,
		listQueries:   questions.lists.Load(),
		identityCalls: provider.calls.Load(),
		cacheKeys:     int(keys),
		memoryBytes:   memBytes,
	}
}

func makeRequests(n int) []request {
	limits := []int{10, 20, 50}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		limit := limits[rnd.Intn(len(limits))]
		page := 1
		if rnd.Float64() > 0.72 {
			// 少量请求翻到深页
			page = 2 + rnd.Intn(40)
		}
		out[i] = request{page: page, limit: limit}
	}
	return out
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
