package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker keeps periodic jobs from running on more than one replica at a time.
type Locker interface {
	// TryLock returns a release func when the lock was taken, nil when another holder has it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// LocalLocker always succeeds. Used when no Redis is configured and a single replica runs.
type LocalLocker struct{}

func (LocalLocker) TryLock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	return func() {
		// only the holder may delete; an expired lock may already belong to someone else
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.rdb, []string{key}, token)
	}, nil
}

// NewLocker picks the Redis locker when a client is available.
func NewLocker(rdb *redis.Client) Locker {
	if rdb == nil {
		return LocalLocker{}
	}
	return NewRedisLocker(rdb)
}
