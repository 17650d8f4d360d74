package redis_repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "curator:dedup:"

// keys outlive their day so a clock skew between replicas can't resurrect duplicates
const dedupKeyTTL = 48 * time.Hour

// redisDedupRepository keeps one set per calendar day. Rollover is implicit:
// a new day reads and writes a new key, and old keys expire on their own.
type redisDedupRepository struct {
	client *redis.Client
	loc    *time.Location
	now    func() time.Time
}

func (r *redisDedupRepository) key() string {
	return dedupKeyPrefix + r.now().In(r.loc).Format("2006-01-02")
}

func (r *redisDedupRepository) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key(), id).Result()
	if err != nil {
		return false, fmt.Errorf("sismember: %w", err)
	}
	return ok, nil
}

func (r *redisDedupRepository) MarkSeen(ctx context.Context, id string) (bool, error) {
	key := r.key()
	pipe := r.client.TxPipeline()
	added := pipe.SAdd(ctx, key, id)
	pipe.Expire(ctx, key, dedupKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("sadd: %w", err)
	}
	return added.Val() == 1, nil
}

func NewRedisDedupRepository(client *redis.Client, loc *time.Location, now func() time.Time) *redisDedupRepository {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &redisDedupRepository{client: client, loc: loc, now: now}
}
