package targeting

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docmatch/notifier/pkg/logger"
)

// Cache is the subset of the go-redis client used by CachedMembership.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedMembership caches role lookups in Redis. Existence checks always go
// to the wrapped Membership. Cache failures degrade to a direct lookup.
type CachedMembership struct {
	next   Membership
	cache  Cache
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// CacheOption configures a CachedMembership.
type CacheOption func(*CachedMembership)

// WithCacheLogger sets the logger for cache failures.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *CachedMembership) {
		c.logger = l
	}
}

// WithKeyPrefix sets the Redis key prefix. Default "notifier:role:".
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *CachedMembership) {
		c.prefix = prefix
	}
}

// NewCachedMembership wraps next with a role cache living for ttl.
func NewCachedMembership(next Membership, cache Cache, ttl time.Duration, opts ...CacheOption) *CachedMembership {
	c := &CachedMembership{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		prefix: "notifier:role:",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedMembership) RecipientsByRole(ctx context.Context, role string) ([]int64, error) {
	key := c.prefix + role

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ids []int64
		if jerr := json.Unmarshal(raw, &ids); jerr == nil {
			return ids, nil
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, "discarding corrupt role cache entry", logger.Role(role))
	case !errors.Is(err, redis.Nil):
		c.logger.LogAttrs(ctx, slog.LevelWarn, "role cache read failed", logger.Role(role), logger.Error(err))
	}

	ids, err := c.next.RecipientsByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ids)
	if err == nil {
		err = c.cache.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "role cache write failed", logger.Role(role), logger.Error(err))
	}
	return ids, nil
}

func (c *CachedMembership) Existing(ctx context.Context, ids []int64) ([]int64, error) {
	return c.next.Existing(ctx, ids)
}

// Invalidate drops cached lists for roles, plus the "all" list which every
// role change affects.
func (c *CachedMembership) Invalidate(ctx context.Context, roles ...string) error {
	keys := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		keys = append(keys, c.prefix+r)
	}
	keys = append(keys, c.prefix+RoleAll)
	return c.cache.Del(ctx, keys...).Err()
}
