package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_GetSet(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "questions:page=1:limit=10")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "questions:page=1:limit=10", []byte(`[]`), time.Hour))
	got, err := c.Get(ctx, "questions:page=1:limit=10")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
	assert.Equal(t, time.Hour, mr.TTL("questions:page=1:limit=10"))

	mr.FastForward(time.Hour + time.Second)
	_, err = c.Get(ctx, "questions:page=1:limit=10")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	keys := []string{
		QuestionsPageKey(1, 10),
		QuestionsPageKey(2, 10),
		QuestionsPageKey(1, 50),
		RepliesPageKey("q1", 1, 5),
		RepliesPageKey("q1", 3, 5),
		RepliesPageKey("q2", 1, 5),
		UserKey("uid-1"),
	}
	for _, k := range keys {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Hour))
	}

	n, err := c.DeletePattern(ctx, RepliesPattern("q1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists(RepliesPageKey("q2", 1, 5)))

	n, err = c.DeletePattern(ctx, QuestionsPattern())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.ElementsMatch(t, []string{RepliesPageKey("q2", 1, 5), UserKey("uid-1")}, mr.Keys())
}

func TestRedisCache_DeletePatternManyKeys(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	// 超过多个 SCAN 批次，且与不匹配的 key 交错
	for p := 1; p <= 1200; p++ {
		mr.Set(QuestionsPageKey(p, 10), "x")
		if p%100 == 0 {
			mr.Set(RepliesPageKey("q1", p, 5), "x")
		}
	}
	n, err := c.DeletePattern(ctx, QuestionsPattern())
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
	assert.Len(t, mr.Keys(), 12)
	for _, k := range mr.Keys() {
		assert.Contains(t, k, "replies:")
	}

	n, err = c.DeletePattern(ctx, QuestionsPattern())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "questions:page=2:limit=10", QuestionsPageKey(2, 10))
	assert.Equal(t, "questions:page=*", QuestionsPattern())
	assert.Equal(t, "replies:questionId=abc:page=1:limit=5", RepliesPageKey("abc", 1, 5))
	assert.Equal(t, "replies:questionId=abc:*", RepliesPattern("abc"))
	assert.Equal(t, `replies:questionId=a\*:*`, RepliesPattern("a*"))
	assert.Equal(t, "user:uid-9", UserKey("uid-9"))
}

func TestNopCache(t *testing.T) {
	c := NewNopCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	n, err := c.DeletePattern(ctx, "*")
	require.NoError(t, err)
	assert.Zero(t, n)
}
