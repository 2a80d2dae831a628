package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

// DefaultSweepLockKey is the Redis key shared by all sweeper instances
const DefaultSweepLockKey = "locks:booking-sweep"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSweepLock elects a single sweeper across instances with SET NX PX
type RedisSweepLock struct {
	client redis.Cmdable
	key    string
	token  string
}

// NewRedisSweepLock creates a lock bound to key with a per-instance token
func NewRedisSweepLock(client redis.Cmdable, key string) *RedisSweepLock {
	if key == "" {
		key = DefaultSweepLockKey
	}
	return &RedisSweepLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
	}
}

var _ providers.SweepLock = (*RedisSweepLock)(nil)

// TryAcquire takes the lock for ttl
func (l *RedisSweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	return ok, nil
}

// Claim sets a marker key next to the lock; the marker expires on its own
func (l *RedisSweepLock) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.claimKey(key), l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisSweepLock) claimKey(key string) string {
	return l.key + ":claims:" + key
}

// Release drops the lock if this instance still holds it
func (l *RedisSweepLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	return nil
}
