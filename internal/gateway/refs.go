package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRefTTL = 30 * 24 * time.Hour
	claimTTL      = 2 * time.Minute
)

// RefStore maps local order ids to provider references for drivers whose API cannot be queried by
// our order id.
type RefStore interface {
	// Claim reserves the right to create the provider object for orderID. It returns false when
	// another caller holds the claim.
	Claim(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
	Get(ctx context.Context, orderID string) (string, error)
	Save(ctx context.Context, orderID, ref string) error
}

type RedisRefStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRefStore(client *redis.Client, ttl time.Duration) *RedisRefStore {
	if ttl <= 0 {
		ttl = defaultRefTTL
	}
	return &RedisRefStore{client: client, ttl: ttl}
}

func refKey(orderID string) string   { return fmt.Sprintf("gateway:order:%s:ref", orderID) }
func claimKey(orderID string) string { return fmt.Sprintf("gateway:order:%s:claim", orderID) }

func (s *RedisRefStore) Claim(ctx context.Context, orderID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimKey(orderID), "1", claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim order %s: %w", orderID, err)
	}
	return ok, nil
}

func (s *RedisRefStore) Release(ctx context.Context, orderID string) error {
	return s.client.Del(ctx, claimKey(orderID)).Err()
}

// Get returns "" when no reference has been saved.
func (s *RedisRefStore) Get(ctx context.Context, orderID string) (string, error) {
	ref, err := s.client.Get(ctx, refKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get order ref %s: %w", orderID, err)
	}
	return ref, nil
}

func (s *RedisRefStore) Save(ctx context.Context, orderID, ref string) error {
	if err := s.client.Set(ctx, refKey(orderID), ref, s.ttl).Err(); err != nil {
		return fmt.Errorf("save order ref %s: %w", orderID, err)
	}
	return nil
}
