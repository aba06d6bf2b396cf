package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"replication-connector/internal/replication/domain/repository"
	"replication-connector/internal/shared/logger"
)

const lockKeyPrefix = "replication:lock:"

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRecordLock serializes golden record writers across processes with
// SET NX PX locks. A holder that dies loses the lock after ttl.
type RedisRecordLock struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger logger.Logger
}

var _ repository.RecordLock = (*RedisRecordLock)(nil)

// NewRedisRecordLock creates a lock with the given ttl and retry interval
func NewRedisRecordLock(client *redis.Client, ttl, retry time.Duration, log logger.Logger) *RedisRecordLock {
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &RedisRecordLock{
		client: client,
		ttl:    ttl,
		retry:  retry,
		logger: log.WithComponent("redis_record_lock"),
	}
}

// Lock blocks until key is held or ctx is done
func (l *RedisRecordLock) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warnf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}
