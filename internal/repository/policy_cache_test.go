package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestCachedPolicyRepositoryNilClientIsPassthrough(t *testing.T) {
	store := NewMemoryStore()
	repo := NewCachedSLAPolicyRepository(store.Policies(), nil, time.Minute, zap.NewNop(), nil)
	assert.IsType(t, memoryPolicies{}, repo)
}

func TestCachedPolicyRepositoryFallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewMemoryStore()
	recorder := &countingRecorder{}
	repo := NewCachedSLAPolicyRepository(store.Policies(), client, time.Minute, zap.NewNop(), recorder)
	ctx := context.Background()

	policy := &domain.SLAPolicy{Name: "Urgent", Priority: domain.TicketPriorityUrgent, ResponseHours: 1, ResolutionHours: 4, Active: true, CreatedAt: base}
	require.NoError(t, repo.Create(ctx, policy))

	active, err := repo.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, policy.ID, active[0].ID)

	policy.Active = false
	require.NoError(t, repo.Update(ctx, policy))

	active, err = repo.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 2, recorder.results["error"])
}

type countingRecorder struct {
	results map[string]int
}

func (r *countingRecorder) RecordPolicyCache(result string) {
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func TestPolicyCacheKey(t *testing.T) {
	assert.Equal(t, "helpdesk:sla:active:0:urgent", policyCacheKey(0, domain.TicketPriorityUrgent))
	assert.Equal(t, "helpdesk:sla:active:12:low", policyCacheKey(12, domain.TicketPriorityLow))
}

func newMiniredisCache(t *testing.T, next SLAPolicyRepository) (*CachedSLAPolicyRepository, *miniredis.Miniredis, *countingRecorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	recorder := &countingRecorder{}
	repo := NewCachedSLAPolicyRepository(next, client, time.Minute, zap.NewNop(), recorder)
	cached, ok := repo.(*CachedSLAPolicyRepository)
	require.True(t, ok)
	return cached, mr, recorder
}

func TestCachedPolicyRepositoryMissPopulatesThenHits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	policy := &domain.SLAPolicy{Name: "Urgent", Priority: domain.TicketPriorityUrgent, ResponseHours: 1, ResolutionHours: 4, Active: true, CreatedAt: base}
	require.NoError(t, store.Policies().Create(ctx, policy))

	cache, mr, recorder := newMiniredisCache(t, store.Policies())

	active, err := cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1, recorder.results["miss"])

	key := policyCacheKey(0, domain.TicketPriorityUrgent)
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// A write that bypasses the cache stays invisible until invalidation.
	stale := *policy
	stale.Active = false
	require.NoError(t, store.Policies().Update(ctx, &stale))

	active, err = cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, policy.ID, active[0].ID)
	assert.Equal(t, "Urgent", active[0].Name)
	assert.Equal(t, 1, recorder.results["hit"])
}

func TestCachedPolicyRepositoryWritesInvalidate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	cache, mr, recorder := newMiniredisCache(t, store.Policies())

	policy := &domain.SLAPolicy{Name: "Urgent", Priority: domain.TicketPriorityUrgent, ResponseHours: 1, ResolutionHours: 4, Active: true, CreatedAt: base}
	require.NoError(t, cache.Create(ctx, policy))

	active, err := cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)

	updated := *policy
	updated.ResolutionHours = 8
	require.NoError(t, cache.Update(ctx, &updated))

	gen, err := mr.Get(policyCacheGenKey)
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
	assert.False(t, mr.Exists(policyCacheKey(1, domain.TicketPriorityUrgent)))

	active, err = cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 8, active[0].ResolutionHours)
	assert.Equal(t, 2, recorder.results["miss"])
	assert.Zero(t, recorder.results["hit"])
}

// interleavedPolicies runs onLoad after reading from the store but before the
// result reaches the cache, imitating a policy write landing mid-lookup.
type interleavedPolicies struct {
	SLAPolicyRepository
	onLoad func()
}

func (p *interleavedPolicies) ListActiveByPriority(ctx context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error) {
	out, err := p.SLAPolicyRepository.ListActiveByPriority(ctx, priority)
	if p.onLoad != nil {
		hook := p.onLoad
		p.onLoad = nil
		hook()
	}
	return out, err
}

func TestCachedPolicyRepositoryDropsWriteBackFromRetiredGeneration(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	policy := &domain.SLAPolicy{Name: "Urgent", Priority: domain.TicketPriorityUrgent, ResponseHours: 1, ResolutionHours: 4, Active: true, CreatedAt: base}
	require.NoError(t, store.Policies().Create(ctx, policy))

	inner := &interleavedPolicies{SLAPolicyRepository: store.Policies()}
	cache, _, _ := newMiniredisCache(t, inner)
	inner.onLoad = func() {
		deactivated := *policy
		deactivated.Active = false
		require.NoError(t, cache.Update(ctx, &deactivated))
	}

	// The in-flight lookup still answers with what it read.
	active, err := cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	require.Len(t, active, 1)

	// Its write-back must not outlive the concurrent invalidation.
	active, err = cache.ListActiveByPriority(ctx, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Empty(t, active)
}
