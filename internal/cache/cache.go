package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache stores opaque values with a per-entry TTL. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Config selects and sizes the cache backend.
type Config struct {
	Driver   string // memory or redis
	Capacity int
	Redis    RedisConfig
}

// New builds the configured backend. When Redis is unreachable it falls back
// to the in-memory cache so the register keeps working.
func New(cfg Config, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.Capacity), nil
	case "redis":
		c, err := NewRedis(cfg.Redis)
		if err != nil {
			logger.Warn("redis cache unavailable, using in-memory cache", zap.Error(err))
			return NewMemory(cfg.Capacity), nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
