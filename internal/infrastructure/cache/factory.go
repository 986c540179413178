package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
)

// Factory creates caches based on configuration
type Factory struct {
	cfg                   config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis cache when configured, falling back to an in-memory
// cache if Redis cannot be reached and fallback is allowed.
func (f *Factory) Create(ctx context.Context) (Cache, error) {
	if !f.cfg.Redis {
		return NewInMemoryCache(0), nil
	}

	c, err := NewRedisCache(ctx, RedisConfig{
		Host:     f.cfg.Host,
		Port:     f.cfg.Port,
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis report cache",
			zap.String("host", f.cfg.Host),
			zap.Int("port", f.cfg.Port))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis cache unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory report cache",
		zap.Error(err))
	return NewInMemoryCache(0), nil
}
