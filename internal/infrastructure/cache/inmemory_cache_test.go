package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInMemoryCache(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()

	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set and get", func(t *testing.T) {
		value := []byte(`{"violations":0}`)
		require.NoError(t, c.Set(ctx, "report", value, time.Hour))

		got, ok, err := c.Get(ctx, "report")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, value, got)

		// Returned and stored values do not alias the caller's slice.
		got[0] = 'x'
		value[1] = 'x'
		again, _, _ := c.Get(ctx, "report")
		assert.Equal(t, `{"violations":0}`, string(again))
	})

	t.Run("expired entries are misses", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", []byte("1"), 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		_, ok, err := c.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "forever", []byte("1"), 0))
		c.cleanup()
		_, ok, _ := c.Get(ctx, "forever")
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", []byte("1"), time.Hour))
		require.NoError(t, c.Delete(ctx, "gone"))
		_, ok, _ := c.Get(ctx, "gone")
		assert.False(t, ok)
		require.NoError(t, c.Delete(ctx, "never-set"))
	})
}

func TestInMemoryCache_Cleanup(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 10*time.Millisecond))
	require.NoError(t, c.Set(ctx, "b", []byte("1"), time.Hour))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 2, c.Size())
	c.cleanup()
	assert.Equal(t, 1, c.Size())
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("lint", string(rune('a'+i%5)))
			_ = c.Set(ctx, key, []byte{byte(i)}, time.Minute)
			_, _, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Size())
}

func TestInMemoryCache_CloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewInMemoryCache(time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
