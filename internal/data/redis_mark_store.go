package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/workmarket/internal/core"
)

var _ core.MarkStore = (*RedisMarkStore)(nil)

var errEmptyKey = errors.New("mark key cannot be empty")

// RedisMarkStore keeps once-only marks in redis so every replica sees them.
type RedisMarkStore struct {
	client redis.UniversalClient
}

// NewRedisMarkStore creates a RedisMarkStore on client.
func NewRedisMarkStore(client redis.UniversalClient) *RedisMarkStore {
	return &RedisMarkStore{client: client}
}

// MarkNX issues SET key 1 NX [PX ttl]. A non-positive ttl stores the mark
// without expiry.
func (s *RedisMarkStore) MarkNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	args := redis.SetArgs{Mode: "NX"}
	if ttl > 0 {
		args.TTL = ttl
	}
	status, err := s.client.SetArgs(ctx, key, "1", args).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// NX not met: the key already exists.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("redis set nx %s: %w", key, err)
	}
	return status == "OK", nil
}

// Exists reports whether key is set.
func (s *RedisMarkStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping checks the redis connection.
func (s *RedisMarkStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
