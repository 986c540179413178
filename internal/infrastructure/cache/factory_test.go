package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
)

func TestFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("in-memory without redis", func(t *testing.T) {
		c, err := NewFactory(config.CacheConfig{}).Create(ctx)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryCache{}, c)
	})

	unreachable := config.CacheConfig{Redis: true, Host: "127.0.0.1", Port: 1}

	t.Run("falls back when redis is unreachable", func(t *testing.T) {
		c, err := NewFactory(unreachable, WithLogger(zaptest.NewLogger(t))).Create(ctx)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryCache{}, c)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewFactory(unreachable, WithInMemoryFallback(false)).Create(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis cache unavailable")
	})
}
