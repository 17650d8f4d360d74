package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/curator/config"
	"github.com/mohammad-safakhou/curator/repository/memory_repository"
	"github.com/mohammad-safakhou/curator/repository/redis_repository"
)

// DedupStore tracks candidate identities surfaced during the current day.
// Both methods roll the window over first when the calendar day changed.
type DedupStore interface {
	Seen(ctx context.Context, id string) (bool, error)
	// MarkSeen records id and reports whether it was newly added. A false
	// result means another caller marked it first during the same day.
	MarkSeen(ctx context.Context, id string) (bool, error)
}

type RepoType string

const (
	RepoTypeMemory RepoType = "memory"
	RepoTypeRedis  RepoType = "redis"
)

// NewDedupStore builds the configured backend.
func NewDedupStore(ctx context.Context, cfg config.StorageConfig, loc *time.Location) (DedupStore, error) {
	switch RepoType(cfg.DedupBackend) {
	case RepoTypeMemory, "":
		return memory_repository.NewDedupWindow(loc, nil), nil
	case RepoTypeRedis:
		r := cfg.Redis
		c, err := redis_repository.Conn(ctx, r.Host, r.Port, r.Password, r.DB, r.Timeout)
		if err != nil {
			return nil, fmt.Errorf("dedup store: %w", err)
		}
		return redis_repository.NewRedisDedupRepository(c, loc, nil), nil
	}
	return nil, fmt.Errorf("invalid repository type: %s", cfg.DedupBackend)
}

// Locker guards one-shot triggers across replicas.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// NewLocker returns a redis-backed Locker, or nil when redis isn't configured
// and the process runs alone.
func NewLocker(ctx context.Context, cfg config.StorageConfig) (Locker, error) {
	if !cfg.Redis.Enabled() {
		return nil, nil
	}
	r := cfg.Redis
	c, err := redis_repository.Conn(ctx, r.Host, r.Port, r.Password, r.DB, r.Timeout)
	if err != nil {
		return nil, fmt.Errorf("locker: %w", err)
	}
	return redis_repository.NewLocker(c), nil
}
