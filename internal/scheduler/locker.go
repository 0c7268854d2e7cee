// internal/scheduler/locker.go
package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker grants a run to at most one replica per key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLocker takes run locks with SET NX. Locks are never released early;
// they expire with their TTL so a later replica cannot repeat the same day.
type RedisLocker struct {
	client redis.Cmdable
	owner  string
}

func NewRedisLocker(client redis.Cmdable, owner string) *RedisLocker {
	return &RedisLocker{client: client, owner: owner}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "schedule:lock:"+key, l.owner, ttl).Result()
}
