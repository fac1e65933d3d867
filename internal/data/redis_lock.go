package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/target/filetrack-api/internal/core"
)

const (
	defaultJobLockTTL = 2 * time.Minute
	jobLockPrefix     = "filetrack:job-lock:"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisJobLocker implements core.JobLocker with SET NX PX and a token-checked release.
type RedisJobLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ core.JobLocker = (*RedisJobLocker)(nil)

// NewRedisJobLocker creates a locker whose locks expire after ttl if never released.
func NewRedisJobLocker(client redis.UniversalClient, ttl time.Duration) *RedisJobLocker {
	if ttl <= 0 {
		ttl = defaultJobLockTTL
	}
	return &RedisJobLocker{client: client, ttl: ttl}
}

// Lock acquires the job lock or returns ErrJobLocked when it is held elsewhere.
func (l *RedisJobLocker) Lock(ctx context.Context, jobID string) (core.UnlockFunc, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	key := jobLockPrefix + jobID
	token := uuid.NewString()

	status, err := l.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Result()
	if err != nil {
		// NX not met is reported as redis.Nil.
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobLocked
		}
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if status != "OK" {
		return nil, ErrJobLocked
	}

	return func(ctx context.Context) error {
		if relErr := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); relErr != nil &&
			!errors.Is(relErr, redis.Nil) {
			return fmt.Errorf("release job lock: %w", relErr)
		}
		return nil
	}, nil
}
