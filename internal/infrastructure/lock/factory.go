package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory creates key lockers based on configuration
type Factory struct {
	lockConfig  config.LockConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the lockers it creates
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new factory
func NewFactory(lockCfg config.LockConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		lockConfig:  lockCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured locker and a close function for the
// resources it owns. Redis must be reachable when selected; there is no
// in-memory fallback.
func (f *Factory) Create() (inventory.KeyLocker, func() error, error) {
	switch f.lockConfig.Backend {
	case config.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		f.logger.Info("using Redis key locker",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Duration("ttl", f.lockConfig.TTL),
		)
		locker := NewRedisKeyLocker(client, RedisOptions{
			KeyPrefix:      f.lockConfig.KeyPrefix,
			TTL:            f.lockConfig.TTL,
			RetryInterval:  f.lockConfig.RetryInterval,
			AcquireTimeout: f.lockConfig.AcquireTimeout,
		}, f.logger)
		return locker, client.Close, nil

	case config.LockBackendMemory, "":
		f.logger.Info("using in-memory key locker")
		return NewInMemoryKeyLocker(f.lockConfig.AcquireTimeout), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", f.lockConfig.Backend)
	}
}
