// Package runlock serializes pipeline runs. One run at a time; overlapping
// triggers wait their turn. The in-process mutex guard is the default, the
// Redis guard extends the same contract across processes with a leased key.
package runlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ecomstack/ecomdash-sync/internal/config"
)

// Guard admits one holder at a time. Acquire blocks until the guard is
// free or the context ends; the returned release function must be called
// exactly once.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// MutexGuard is the in-process guard.
type MutexGuard struct {
	sem chan struct{}
}

func NewMutexGuard() *MutexGuard {
	return &MutexGuard{sem: make(chan struct{}, 1)}
}

func (g *MutexGuard) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-g.sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedisGuard holds a leased key so concurrent deployments cannot run the
// pipeline at the same time. The lease TTL bounds how long a crashed
// holder can block others.
type RedisGuard struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

const redisRetryInterval = time.Second

func NewRedisGuard(cfg config.RedisConfig) *RedisGuard {
	return &RedisGuard{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key:    cfg.LockKey,
		ttl:    cfg.LockTTL,
		logger: slog.Default().With("component", "runlock"),
	}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lease: %w", err)
		}
		if ok {
			g.logger.Debug("run lease acquired", "key", g.key)
			var once sync.Once
			return func() { once.Do(func() { g.release(token) }) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisRetryInterval):
		}
	}
}

// release deletes the lease only when this holder still owns it, so an
// expired lease taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (g *RedisGuard) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, g.client, []string{g.key}, token).Err(); err != nil && err != redis.Nil {
		g.logger.Warn("failed to release run lease", "error", err)
	}
}

// FromConfig picks the Redis guard when an address is configured, the
// in-process mutex otherwise.
func FromConfig(cfg config.RedisConfig) Guard {
	if cfg.Addr != "" {
		return NewRedisGuard(cfg)
	}
	return NewMutexGuard()
}
