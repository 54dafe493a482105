package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plainly/plainly/internal/core/store"
)

func newTestLimiter(limit int) (*RateLimiter, *store.UsageStore) {
	usage := store.NewUsageStore()
	return NewRateLimiter(usage, limit, time.Hour), usage
}

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(5)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		decision := limiter.CheckAndRecord("10.0.0.1", now.Add(time.Duration(i)*time.Minute))
		require.True(t, decision.Allowed, "call %d should be allowed", i)
		require.Equal(t, i, decision.Count)
	}
}

func TestRateLimiterDeniesOverLimitWithoutIncrement(t *testing.T) {
	limiter, usage := newTestLimiter(5)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.True(t, limiter.CheckAndRecord("10.0.0.1", start).Allowed)
	}

	denied := limiter.CheckAndRecord("10.0.0.1", start.Add(20*time.Minute))
	require.False(t, denied.Allowed)
	require.Equal(t, 5, denied.Count)
	require.Equal(t, 40*time.Minute, denied.RetryAfter)

	denied = limiter.CheckAndRecord("10.0.0.1", start.Add(30*time.Minute))
	require.False(t, denied.Allowed)

	record, ok := usage.Get("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 5, record.Count)
	require.True(t, record.WindowStart.Equal(start))
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	limiter, usage := newTestLimiter(5)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		limiter.CheckAndRecord("10.0.0.1", start)
	}

	// Exactly one window later the record is still live.
	require.False(t, limiter.CheckAndRecord("10.0.0.1", start.Add(time.Hour)).Allowed)

	later := start.Add(time.Hour + time.Millisecond)
	decision := limiter.CheckAndRecord("10.0.0.1", later)
	require.True(t, decision.Allowed)
	require.Equal(t, 1, decision.Count)

	record, ok := usage.Get("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 1, record.Count)
	require.True(t, record.WindowStart.Equal(later))
}

func TestRateLimiterClientsAreIndependent(t *testing.T) {
	limiter, usage := newTestLimiter(2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, limiter.CheckAndRecord("a", now).Allowed)
	require.True(t, limiter.CheckAndRecord("a", now).Allowed)
	require.False(t, limiter.CheckAndRecord("a", now).Allowed)

	decision := limiter.CheckAndRecord("b", now)
	require.True(t, decision.Allowed)
	require.Equal(t, 1, decision.Count)

	a, _ := usage.Get("a")
	b, _ := usage.Get("b")
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, 1, b.Count)
}

// The window is fixed, not sliding: a client can spend a full allowance at the
// end of one window and another full allowance right after it expires.
func TestRateLimiterFixedWindowAllowsBurstAcrossBoundary(t *testing.T) {
	limiter, _ := newTestLimiter(5)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, limiter.CheckAndRecord("burst", start).Allowed)
	edge := start.Add(59 * time.Minute)
	for i := 0; i < 4; i++ {
		require.True(t, limiter.CheckAndRecord("burst", edge).Allowed)
	}

	after := start.Add(time.Hour + time.Second)
	allowed := 0
	for i := 0; i < 5; i++ {
		if limiter.CheckAndRecord("burst", after).Allowed {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed, "fixed window permits 2*limit calls within about a minute")
}

func TestRateLimiterEmptyClientSharesUnknownBucket(t *testing.T) {
	limiter, usage := newTestLimiter(1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, limiter.CheckAndRecord("", now).Allowed)
	require.False(t, limiter.CheckAndRecord(store.UnknownClient, now).Allowed)
	require.Equal(t, 1, usage.Len())
}

func TestRateLimiterConcurrentCallsAtBoundary(t *testing.T) {
	const limit = 5
	limiter, usage := newTestLimiter(limit)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < limit-1; i++ {
		require.True(t, limiter.CheckAndRecord("racer", now).Allowed)
	}

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if limiter.CheckAndRecord("racer", now).Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), allowed.Load())
	record, ok := usage.Get("racer")
	require.True(t, ok)
	require.Equal(t, limit, record.Count)
}

func TestRateLimiterConcurrentClientsDoNotInterfere(t *testing.T) {
	limiter, usage := newTestLimiter(3)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	clients := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, client := range clients {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				limiter.CheckAndRecord(id, now)
			}(client)
		}
	}
	wg.Wait()

	require.Equal(t, len(clients), usage.Len())
	for _, client := range clients {
		record, ok := usage.Get(client)
		require.True(t, ok)
		require.Equal(t, 3, record.Count, client)
	}
}

func TestNewRateLimiterAppliesDefaults(t *testing.T) {
	limiter := NewRateLimiter(store.NewUsageStore(), 0, 0)
	assert.Equal(t, DefaultPremiumLimit, limiter.Limit)
	assert.Equal(t, DefaultWindow, limiter.Window)
}

func TestRateLimiterWithoutStoreDenies(t *testing.T) {
	var limiter *RateLimiter
	assert.False(t, limiter.CheckAndRecord("x", time.Now()).Allowed)

	limiter = &RateLimiter{Limit: 5, Window: time.Hour}
	assert.False(t, limiter.CheckAndRecord("x", time.Now()).Allowed)
}
