package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatkitd/chatkitd/cache"
)

func TestInMemorySetGet(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	_, found, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryTTLExpiry(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryIncrement(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	count, err := c.Increment(ctx, "counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = c.Increment(ctx, "counter", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestInMemoryIncrementConcurrent(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_, _ = c.Increment(ctx, "counter", 1)
			}
		}()
	}
	wg.Wait()

	count, err := c.Increment(ctx, "counter", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), count)
}

func TestInMemoryExpireSurvivesConcurrentIncrements(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	_, err := c.Increment(ctx, "counter", 1)
	require.NoError(t, err)

	// Concurrent increments race the swap inside Expire; the deadline
	// must land regardless and stick through every later increment.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 500 {
			_, _ = c.Increment(ctx, "counter", 1)
		}
	}()

	require.NoError(t, c.Expire(ctx, "counter", 250*time.Millisecond))
	wg.Wait()

	time.Sleep(300 * time.Millisecond)

	_, found, err := c.Get(ctx, "counter")
	require.NoError(t, err)
	assert.False(t, found, "counter must expire once its window ends")
}

func TestInMemoryExpireKeepsValue(t *testing.T) {
	c := cache.NewInMemory()
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Expire(ctx, "k", time.Minute))

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)
}

func TestOpenSchemes(t *testing.T) {
	c, err := cache.Open("memory://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.True(t, c.SupportsPerKeyTTL())

	_, err = cache.Open("bogus://somewhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrUnknownScheme)
}
