package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Redis wraps the go-redis client backing the policy cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. An empty
// address leaves the client unset and disables caching.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; policy cache disabled")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Universal returns the client as an interface, or nil when disabled.
func (r *Redis) Universal() redis.UniversalClient {
	if !r.Enabled() {
		return nil
	}
	return r.Client
}
