//go:build integration

package coursecache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestInvalidateDropsOnlyCourseKeys(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	c := New(rdb, time.Minute, 5*time.Second)

	year := int32(1)
	all := Key(domain.CourseFilter{})
	firstYear := Key(domain.CourseFilter{YearLevel: &year})
	c.Set(ctx, all, []*domain.Course{{ID: 1, Code: "PRG510S"}})
	c.Set(ctx, firstYear, []*domain.Course{{ID: 1, Code: "PRG510S"}})
	require.NoError(t, rdb.Set(ctx, "unrelated:key", "keep", time.Minute).Err())
	t.Cleanup(func() { rdb.Del(context.Background(), "unrelated:key") })

	got, ok := c.Get(ctx, all)
	require.True(t, ok)
	assert.Equal(t, "PRG510S", got[0].Code)

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)

	_, ok = c.Get(ctx, all)
	assert.False(t, ok)
	_, ok = c.Get(ctx, firstYear)
	assert.False(t, ok)

	kept, err := rdb.Get(ctx, "unrelated:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}
