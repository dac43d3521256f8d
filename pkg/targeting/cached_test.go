package targeting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/targeting"
)

// fakeCache is a map-backed stand-in for the go-redis client.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return redis.NewStringResult("", c.readErr)
	}
	v, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = string(value.([]byte))
	c.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingMembership struct {
	targeting.Membership
	calls int
}

func (c *countingMembership) RecipientsByRole(ctx context.Context, role string) ([]int64, error) {
	c.calls++
	return c.Membership.RecipientsByRole(ctx, role)
}

func TestCachedMembership(t *testing.T) {
	ctx := context.Background()
	inner := &countingMembership{Membership: newStatic()}
	cache := newFakeCache()
	m := targeting.NewCachedMembership(inner, cache, time.Minute, targeting.WithCacheLogger(logger.Discard()))

	ids, err := m.RecipientsByRole(ctx, targeting.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "[2,3]", cache.data["notifier:role:doctor"])
	assert.Equal(t, time.Minute, cache.ttls["notifier:role:doctor"])

	ids, err = m.RecipientsByRole(ctx, targeting.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
	assert.Equal(t, 1, inner.calls, "second lookup is served from cache")

	require.NoError(t, m.Invalidate(ctx, targeting.RoleDoctor))
	_, err = m.RecipientsByRole(ctx, targeting.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedMembership_ReadFailureFallsBack(t *testing.T) {
	inner := &countingMembership{Membership: newStatic()}
	cache := newFakeCache()
	cache.readErr = errors.New("connection refused")
	m := targeting.NewCachedMembership(inner, cache, time.Minute, targeting.WithCacheLogger(logger.Discard()))

	ids, err := m.RecipientsByRole(context.Background(), targeting.RoleAll)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedMembership_CorruptEntry(t *testing.T) {
	inner := &countingMembership{Membership: newStatic()}
	cache := newFakeCache()
	cache.data["custom:hospital"] = "not json"
	m := targeting.NewCachedMembership(inner, cache, time.Minute,
		targeting.WithCacheLogger(logger.Discard()),
		targeting.WithKeyPrefix("custom:"),
	)

	ids, err := m.RecipientsByRole(context.Background(), targeting.RoleHospital)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids)
	assert.Equal(t, "[4]", cache.data["custom:hospital"])
}

func TestCachedMembership_ExistingBypassesCache(t *testing.T) {
	cache := newFakeCache()
	m := targeting.NewCachedMembership(newStatic(), cache, time.Minute)

	ids, err := m.Existing(context.Background(), []int64{1, 42})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Empty(t, cache.data)
}
