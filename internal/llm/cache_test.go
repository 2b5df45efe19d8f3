package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionCache(t *testing.T) {
	t.Run("stores and retrieves by prompt pair", func(t *testing.T) {
		cache := newCompletionCache(time.Minute)
		defer cache.Close()

		key := cache.key("system", "user")
		cache.set(key, "completion text")

		got, ok := cache.get(key)
		require.True(t, ok)
		assert.Equal(t, "completion text", got)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("misses on unknown key", func(t *testing.T) {
		cache := newCompletionCache(time.Minute)
		defer cache.Close()

		_, ok := cache.get(cache.key("system", "never stored"))
		assert.False(t, ok)
	})

	t.Run("distinct prompts produce distinct keys", func(t *testing.T) {
		cache := newCompletionCache(time.Minute)
		defer cache.Close()

		assert.NotEqual(t, cache.key("a", "b"), cache.key("a", "c"))
		assert.NotEqual(t, cache.key("a", "b"), cache.key("b", "a"))
		// The separator keeps boundary-shifted prompts apart.
		assert.NotEqual(t, cache.key("ab", "c"), cache.key("a", "bc"))
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		cache := newCompletionCache(time.Millisecond)
		defer cache.Close()

		key := cache.key("system", "user")
		cache.set(key, "stale")

		time.Sleep(5 * time.Millisecond)

		_, ok := cache.get(key)
		assert.False(t, ok)
	})

	t.Run("zero TTL falls back to the default", func(t *testing.T) {
		cache := newCompletionCache(0)
		defer cache.Close()

		assert.Equal(t, 15*time.Minute, cache.ttl)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("acquires up to capacity without blocking", func(t *testing.T) {
		rl := newRateLimiter(3)
		defer rl.Close()

		assert.True(t, rl.tryAcquire())
		assert.True(t, rl.tryAcquire())
		assert.True(t, rl.tryAcquire())
		assert.False(t, rl.tryAcquire())
	})

	t.Run("wait returns immediately when tokens remain", func(t *testing.T) {
		rl := newRateLimiter(60)
		defer rl.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, rl.wait(ctx))
	})

	t.Run("wait honors context cancellation when exhausted", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()

		require.True(t, rl.tryAcquire())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := rl.wait(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("non-positive rate falls back to the default", func(t *testing.T) {
		rl := newRateLimiter(0)
		defer rl.Close()

		assert.Equal(t, 60, rl.capacity)
	})
}
