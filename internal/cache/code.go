// Package cache provides a Redis read-through cache for discount code
// lookups. Cached usage counters may lag behind the database; that is safe
// because the usage-slot claim re-checks the limit atomically at commit time.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"promo-engine/internal/domain/discount"
)

var _ discount.Repository = (*CodeCache)(nil)

// CodeCache wraps a discount.Repository with a Redis cache keyed by the
// upper-cased code string. Mutations delegate to the inner repository and
// invalidate the affected keys; cache failures degrade to direct reads.
type CodeCache struct {
	inner discount.Repository
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCodeCache creates a CodeCache with the given TTL.
func NewCodeCache(inner discount.Repository, rdb *redis.Client, ttl time.Duration) *CodeCache {
	return &CodeCache{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(code string) string {
	return "code:" + strings.ToUpper(strings.TrimSpace(code))
}

// FindByCode serves the record from Redis when present, falling back to the
// inner repository and populating the cache on a miss.
func (c *CodeCache) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	key := cacheKey(code)
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var rec discount.Code
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		c.rdb.Del(ctx, key)
	}

	rec, err := c.inner.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rec); err == nil {
		c.rdb.Set(ctx, key, data, c.ttl)
	}
	return rec, nil
}

// FindByID is not cached; id lookups are an administrative path.
func (c *CodeCache) FindByID(ctx context.Context, id string) (*discount.Code, error) {
	return c.inner.FindByID(ctx, id)
}

// Create delegates and primes the cache with the new record.
func (c *CodeCache) Create(ctx context.Context, rec *discount.Code) error {
	if err := c.inner.Create(ctx, rec); err != nil {
		return err
	}
	if data, err := json.Marshal(rec); err == nil {
		c.rdb.Set(ctx, cacheKey(rec.Code), data, c.ttl)
	}
	return nil
}

// List is not cached.
func (c *CodeCache) List(ctx context.Context, kind discount.Kind, page, size int) (*discount.Page, error) {
	return c.inner.List(ctx, kind, page, size)
}

// Update delegates and invalidates both the old and the new code key, since
// a patch may rename the code.
func (c *CodeCache) Update(ctx context.Context, id string, patch discount.Patch) (*discount.Code, error) {
	old, _ := c.inner.FindByID(ctx, id)

	rec, err := c.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if old != nil {
		c.rdb.Del(ctx, cacheKey(old.Code))
	}
	c.rdb.Del(ctx, cacheKey(rec.Code))
	return rec, nil
}

// Delete delegates and invalidates the code key.
func (c *CodeCache) Delete(ctx context.Context, id string) error {
	old, _ := c.inner.FindByID(ctx, id)

	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	if old != nil {
		c.rdb.Del(ctx, cacheKey(old.Code))
	}
	return nil
}

// IncrementUsage delegates and invalidates the code key so the next lookup
// sees the fresh counter.
func (c *CodeCache) IncrementUsage(ctx context.Context, id string, delta int) (*discount.Code, error) {
	rec, err := c.inner.IncrementUsage(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	c.rdb.Del(ctx, cacheKey(rec.Code))
	return rec, nil
}
