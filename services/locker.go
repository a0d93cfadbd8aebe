package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Locker serializes work on one key. The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker is a single-writer lock shared by every process using the same Redis.
type RedisLocker struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
	logger     *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:     client,
		prefix:     "settlement:lock:",
		ttl:        ttl,
		retryEvery: 50 * time.Millisecond,
		logger:     logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Annotatef(err, "acquire lock %q", key)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					l.release(releaseCtx, redisKey, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Annotatef(ctx.Err(), "wait for lock %q", key)
		case <-time.After(l.retryEvery):
		}
	}
}

// release drops the lock if it still holds token. A failed release is logged;
// the key then lives until its TTL.
func (l *RedisLocker) release(ctx context.Context, redisKey, token string) {
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("Failed to release settlement lock",
			zap.String("key", redisKey),
			zap.Duration("ttl", l.ttl),
			zap.Error(err),
		)
	}
}

// LocalLocker is an in-process keyed mutex, used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			released = make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, errors.Annotatef(ctx.Err(), "wait for lock %q", key)
		case <-released:
		}
	}
}
