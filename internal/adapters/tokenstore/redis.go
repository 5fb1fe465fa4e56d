package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

const defaultRedisKey = "sprintdeck:session:token"

// RedisStore persists the token in Redis. It backs shared-workstation and
// kiosk deployments where several processes on the same host must observe
// the same session. Redis SET/DEL give last-write-wins with no partial
// values observable.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ ports.TokenStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed token store with the default key.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, key: defaultRedisKey}
}

// NewRedisStoreWithKey creates a Redis-backed token store with a custom key.
func NewRedisStoreWithKey(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrTokenNotFound
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	if token == "" {
		return "", ports.ErrTokenNotFound
	}
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	// The token is long-lived and revalidated, not rotated: no TTL.
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}
