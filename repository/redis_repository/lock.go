package redis_repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "curator:lock:"

// Locker hands out short-lived named locks so replicas don't fire the same trigger twice.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// TryLock reports whether the caller acquired name for ttl.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKeyPrefix+name, "1", ttl).Result()
}
