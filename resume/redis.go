package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTTL is how long a stored handle remains valid without refresh.
// Handles are replaced on every resumption update, so the TTL only matters
// for abandoned sessions.
const defaultTTL = 24 * time.Hour

// defaultPrefix is the Redis key prefix.
const defaultPrefix = "livevoice"

// RedisStore provides a Redis-backed implementation of the Store interface.
// Handles survive process restarts, which lets a fresh process resume a
// session started by a previous one.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for stored handles. Default is 24 hours.
// Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys. Default is "livevoice".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed handle store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(12 * time.Hour),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultTTL,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Load retrieves the stored handle for a session from Redis.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidID
	}

	handle, err := s.client.Get(ctx, s.handleKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return handle, nil
}

// Save stores the handle for a session with TTL, replacing any previous one.
func (s *RedisStore) Save(ctx context.Context, sessionID, handle string) error {
	if sessionID == "" {
		return ErrInvalidID
	}

	if err := s.client.Set(ctx, s.handleKey(sessionID), handle, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Clear removes the stored handle for a session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidID
	}

	if err := s.client.Del(ctx, s.handleKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}

	return nil
}

// handleKey generates the Redis key for a session's handle.
func (s *RedisStore) handleKey(sessionID string) string {
	return fmt.Sprintf("%s:resume:%s", s.prefix, sessionID)
}
