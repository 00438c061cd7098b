// Package coursecache keeps filtered course lists in Redis. Every key lives under one prefix
// so a reference-data reload can drop them all.
package coursecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

const keyPrefix = "courses:"

type Cache struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

// New returns a cache over rdb. A nil client gives a cache that always misses.
func New(rdb *redis.Client, ttl, opTimeout time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, opTimeout: opTimeout}
}

func Key(f domain.CourseFilter) string {
	part := func(p *int32) string {
		if p == nil {
			return "*"
		}
		return strconv.Itoa(int(*p))
	}
	return fmt.Sprintf("%syear=%s:semester=%s:q=%s", keyPrefix, part(f.YearLevel), part(f.Semester), strings.ToLower(f.Search))
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get returns the cached list for a key. A miss and a Redis failure both report false.
func (c *Cache) Get(ctx context.Context, key string) ([]*domain.Course, bool) {
	if !c.enabled() {
		return nil, false
	}

	ctx, cancel := c.context(ctx)
	defer cancel()

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("course cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var courses []*domain.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		slog.Warn("course cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}

	return courses, true
}

func (c *Cache) Set(ctx context.Context, key string, courses []*domain.Course) {
	if !c.enabled() {
		return
	}

	raw, err := json.Marshal(courses)
	if err != nil {
		return
	}

	ctx, cancel := c.context(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("course cache write failed", "key", key, "error", err)
	}
}

// Invalidate deletes every cached course list and returns how many keys were removed.
func (c *Cache) Invalidate(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	ctx, cancel := c.context(ctx)
	defer cancel()

	removed := 0
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}

	return removed, nil
}
