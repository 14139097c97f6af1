package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedStore is a read-through Redis cache in front of another store.
// It caches bodies only; access is decided before Fetch is called.
type CachedStore struct {
	next  ContentStore
	cache cacheClient
	ttl   time.Duration
}

func NewCachedStore(next ContentStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, cache: client, ttl: ttl}
}

func cacheKey(ref ObjectRef) string {
	return "content:" + ref.Bucket + "/" + ref.Key
}

// Fetch serves from Redis when possible. Redis failures degrade to a
// direct read.
func (s *CachedStore) Fetch(ctx context.Context, ref ObjectRef) (string, error) {
	key := cacheKey(ref)
	body, err := s.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return body, nil
	case !errors.Is(err, redis.Nil):
		slog.Warn("content cache read failed", "key", key, "error", err)
	}

	body, err = s.next.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, body, s.ttl).Err(); err != nil {
		slog.Warn("content cache write failed", "key", key, "error", err)
	}
	return body, nil
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
