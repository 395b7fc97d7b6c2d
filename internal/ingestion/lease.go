package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a poll across replicas. ok is false when another holder owns the lease.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

type leaseClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// RedisLocker is a SET NX PX lease. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client leaseClient
	key    string
	ttl    time.Duration
}

// NewRedisLocker builds a lease stored under key.
func NewRedisLocker(client leaseClient, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryLock attempts to take the lease once without waiting.
func (l *RedisLocker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	if !acquired {
		return nil, false, nil
	}
	unlock := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release lease %s: %w", l.key, err)
		}
		return nil
	}
	return unlock, true, nil
}
