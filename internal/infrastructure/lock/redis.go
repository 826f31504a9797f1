package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes a key only while it still carries our token, so a
// holder whose lease expired cannot free a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// RedisOptions tunes a RedisKeyLocker
type RedisOptions struct {
	KeyPrefix      string
	TTL            time.Duration
	RetryInterval  time.Duration
	AcquireTimeout time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "erp:lock:"
	}
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 25 * time.Millisecond
	}
	return o
}

// RedisKeyLocker serializes units of work across processes with SET NX leases.
// A lease expires after TTL, which must outlive the longest unit of work.
type RedisKeyLocker struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedisKeyLocker creates a locker over an existing client
func NewRedisKeyLocker(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisKeyLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKeyLocker{
		client: client,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Acquire takes every key in sorted order, polling each until it is free or
// ctx is done. On failure the keys already taken are released.
func (l *RedisKeyLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	keys = inventory.NormalizeKeys(keys)
	if l.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.AcquireTimeout)
		defer cancel()
	}

	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.take(ctx, l.opts.KeyPrefix+key, token); err != nil {
			l.releaseAll(held, token)
			if ctx.Err() != nil {
				return nil, acquireError(key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		held = append(held, l.opts.KeyPrefix+key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held, token) })
	}, nil
}

func (l *RedisKeyLocker) take(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// releaseAll runs detached from the caller's context, which may already be done
func (l *RedisKeyLocker) releaseAll(held []string, token string) {
	if len(held) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(held) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{held[i]}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock",
				zap.String("key", held[i]),
				zap.Error(err),
			)
		}
	}
}

var _ inventory.KeyLocker = (*RedisKeyLocker)(nil)
