package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	policyCachePrefix = "helpdesk:sla:active:"
	policyCacheGenKey = "helpdesk:sla:gen"
)

// CacheRecorder observes cache lookups; *observability.Metrics satisfies it.
type CacheRecorder interface {
	RecordPolicyCache(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordPolicyCache(string) {}

// CachedSLAPolicyRepository keeps active policies per priority in Redis.
// Entries are keyed by a generation counter that every write increments, so a
// lookup that loaded from the store before an invalidation writes back under a
// retired generation and is never served. Redis failures fall back to the
// underlying repository so the cache never decides correctness.
type CachedSLAPolicyRepository struct {
	next     SLAPolicyRepository
	client   redis.UniversalClient
	ttl      time.Duration
	logger   *zap.Logger
	recorder CacheRecorder
}

// NewCachedSLAPolicyRepository wraps next. A nil client disables caching.
func NewCachedSLAPolicyRepository(next SLAPolicyRepository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger, recorder CacheRecorder) SLAPolicyRepository {
	if client == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CachedSLAPolicyRepository{next: next, client: client, ttl: ttl, logger: logger, recorder: recorder}
}

func (c *CachedSLAPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := c.next.Create(ctx, policy); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedSLAPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := c.next.Update(ctx, policy); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedSLAPolicyRepository) GetByID(ctx context.Context, id int64) (*domain.SLAPolicy, error) {
	return c.next.GetByID(ctx, id)
}

func (c *CachedSLAPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	return c.next.List(ctx)
}

func (c *CachedSLAPolicyRepository) ListActiveByPriority(ctx context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.recorder.RecordPolicyCache("error")
		c.logger.Warn("policy cache read failed", zap.String("key", policyCacheGenKey), zap.Error(err))
		return c.next.ListActiveByPriority(ctx, priority)
	}
	key := policyCacheKey(gen, priority)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []domain.SLAPolicy
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			c.recorder.RecordPolicyCache("hit")
			return cached, nil
		}
		c.recorder.RecordPolicyCache("error")
		c.logger.Warn("discarding malformed policy cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
		c.recorder.RecordPolicyCache("miss")
	default:
		c.recorder.RecordPolicyCache("error")
		c.logger.Warn("policy cache read failed", zap.String("key", key), zap.Error(err))
	}

	policies, err := c.next.ListActiveByPriority(ctx, priority)
	if err != nil {
		return nil, err
	}

	// key still names the generation observed before the store read.
	payload, err := json.Marshal(policies)
	if err == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("policy cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return policies, nil
}

// Invalidate retires the current generation and drops its entries.
func (c *CachedSLAPolicyRepository) Invalidate(ctx context.Context) {
	gen, err := c.client.Incr(ctx, policyCacheGenKey).Result()
	if err != nil {
		c.logger.Warn("policy cache invalidation failed", zap.Error(err))
		return
	}
	keys := make([]string, 0, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		keys = append(keys, policyCacheKey(gen-1, p))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("policy cache cleanup failed", zap.Int64("generation", gen-1), zap.Error(err))
	}
}

func (c *CachedSLAPolicyRepository) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, policyCacheGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func policyCacheKey(gen int64, priority domain.TicketPriority) string {
	return fmt.Sprintf("%s%d:%s", policyCachePrefix, gen, priority)
}
