package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trips/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	window := 10 * time.Second

	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: window, MaxPerWindow: 3}).WithClock(clock.Now)

	admitted := 0
	var rejected []ratelimit.Decision
	for i := 0; i < 4; i++ {
		decision, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		if decision.Allowed {
			admitted++
		} else {
			rejected = append(rejected, decision)
		}
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, admitted)
	require.Len(t, rejected, 1)
	assert.Equal(t, 7*time.Second, rejected[0].RetryAfter)

	// other clients have their own window
	decision, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Remaining)

	clock.Advance(window)

	decision, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, limiter.Count("10.0.0.1"))
}

func TestMemoryLimiter_first_request_always_admits(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: time.Minute, MaxPerWindow: 1})

	decision, err := limiter.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestMemoryLimiter_concurrent_requests(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: time.Hour, MaxPerWindow: 50})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(ctx, "same-client")
			assert.NoError(t, err)
			if decision.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
	assert.Equal(t, 50, limiter.Count("same-client"))
}

func TestMemoryLimiter_Prune(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: time.Second, MaxPerWindow: 5}).WithClock(clock.Now)

	_, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	_, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 1, limiter.Prune())
	assert.Equal(t, 0, limiter.Count("a"))
	assert.Equal(t, 1, limiter.Count("b"))
}

func TestConfig_defaults(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{})

	for i := 0; i < ratelimit.DefaultMaxPerWindow; i++ {
		decision, err := limiter.Allow(context.Background(), "client")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := limiter.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}
