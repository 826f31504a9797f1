package lock

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Create(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		f := NewFactory(config.LockConfig{Backend: config.LockBackendMemory, AcquireTimeout: time.Second}, config.RedisConfig{})

		locker, closeFn, err := f.Create()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryKeyLocker{}, locker)
		assert.NoError(t, closeFn())
	})

	t.Run("unreachable redis fails", func(t *testing.T) {
		f := NewFactory(
			config.LockConfig{Backend: config.LockBackendRedis},
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
		)

		_, _, err := f.Create()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("unknown backend", func(t *testing.T) {
		f := NewFactory(config.LockConfig{Backend: "zookeeper"}, config.RedisConfig{})

		_, _, err := f.Create()
		require.Error(t, err)
	})
}
