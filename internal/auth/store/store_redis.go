package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sgr:session:"

// RedisProvider stores session entries in Redis so several gateway instances
// share browser sessions.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisProvider.
type RedisOption func(*RedisProvider)

// WithRedisTTL expires entries after ttl. Zero keeps them until deleted.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(p *RedisProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

func NewRedisProvider(client *redis.Client, opts ...RedisOption) *RedisProvider {
	p := &RedisProvider{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *RedisProvider) ForSession(sessionID string) Store {
	return &redisStore{provider: p, sessionID: sessionID}
}

type redisStore struct {
	provider  *RedisProvider
	sessionID string
}

func (s *redisStore) key(k Key) string {
	return sessionKeyPrefix + s.sessionID + ":" + string(k)
}

func (s *redisStore) Persist(ctx context.Context, key Key, value []byte) error {
	if err := s.provider.client.Set(ctx, s.key(key), value, s.provider.ttl).Err(); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Read(ctx context.Context, key Key) ([]byte, error) {
	value, err := s.provider.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// Delete issues a single multi-key DEL, which Redis applies atomically.
func (s *redisStore) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, s.key(k))
	}
	if err := s.provider.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("delete session entries: %w", err)
	}
	return nil
}
