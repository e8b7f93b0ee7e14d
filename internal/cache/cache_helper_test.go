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

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

type cachedCourse struct {
	Title string `json:"title"`
	Seats int    `json:"seats"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Course.Set(ctx, "id:1", cachedCourse{Title: "ISO 9001 Lead Auditor", Seats: 12}, time.Minute))
	assert.True(t, mr.Exists("course:id:1"))

	var got cachedCourse
	require.NoError(t, cm.Course.Get(ctx, "id:1", &got))
	assert.Equal(t, "ISO 9001 Lead Auditor", got.Title)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, cm.Course.Get(ctx, "id:1", &got), ErrCacheNotFound)
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	helper := NewCacheHelper(nil, "course:")
	ctx := context.Background()

	assert.False(t, helper.Available())
	assert.NoError(t, helper.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, helper.Delete(ctx, "k"))
	assert.NoError(t, helper.InvalidatePattern(ctx, "*"))

	var dest string
	assert.ErrorIs(t, helper.Get(ctx, "k", &dest), ErrCacheNotAvailable)

	_, err := helper.Consume(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}

func TestCacheHelper_ConsumeIsSingleUse(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Token.SetString(ctx, "magic:abc", "1", time.Minute))

	first, err := cm.Token.Consume(ctx, "magic:abc")
	require.NoError(t, err)
	assert.Equal(t, "1", first)

	_, err = cm.Token.Consume(ctx, "magic:abc")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_IncrementWindow(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := cm.RateLimit.Increment(ctx, "enroll:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	mr.FastForward(61 * time.Second)

	n, err := cm.RateLimit.Increment(ctx, "enroll:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCacheOrExecute(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return []cachedCourse{{Title: "ISO 14001", Seats: 8}}, nil
	}

	for i := 0; i < 2; i++ {
		var got []cachedCourse
		require.NoError(t, cm.Course.CacheOrExecute(ctx, "list:active", &got, time.Minute, fetch))
		require.Len(t, got, 1)
		assert.Equal(t, "ISO 14001", got[0].Title)
	}
	assert.Equal(t, 1, calls)

	InvalidateCatalog(ctx, cm)

	var got []cachedCourse
	require.NoError(t, cm.Course.CacheOrExecute(ctx, "list:active", &got, time.Minute, fetch))
	assert.Equal(t, 2, calls)
}
