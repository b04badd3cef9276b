package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSecretNotFound covers both never-written and expired keys.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrStoreUnavailable wraps any Redis transport or server failure.
	ErrStoreUnavailable = errors.New("secret store unavailable")
	// ErrInvalidTTL is returned when Set is called without a positive TTL.
	ErrInvalidTTL = errors.New("secret ttl must be positive")
)

// SecretStore is a namespaced key-value store in which every key expires.
type SecretStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewSecretStore(redisClient redis.UniversalClient, prefix string) *SecretStore {
	if prefix == "" {
		prefix = "blogauth"
	}
	return &SecretStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *SecretStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *SecretStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SecretStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return data, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SecretStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping reports whether the backing Redis answers.
func (s *SecretStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
