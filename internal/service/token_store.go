package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore remembers revoked token ids until the token would have expired
type TokenStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenStore keeps revocations in redis with a TTL
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a redis-backed store
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: "revoked_token:"}
}

func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.prefix+jti, 1, ttl).Err()
}

func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryTokenStore is an in-process store for single-instance deployments and tests
type MemoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryTokenStore creates an empty store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryTokenStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = expiresAt
	return nil
}

func (s *MemoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[jti]
	return ok && exp.After(time.Now()), nil
}
