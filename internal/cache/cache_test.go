package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/desertthunder/ytmproxy/internal/testing"
)

func newTestCache(ttl time.Duration, opts ...Option) (*Cache, *tu.Clock) {
	clock := tu.NewClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(ttl, append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestCacheTTL(t *testing.T) {
	t.Run("entry is live for the whole window", func(t *testing.T) {
		c, clock := newTestCache(DefaultTTL)
		c.Put("abc123", "https://example.com/u1")

		clock.Advance(DefaultTTL - time.Nanosecond)
		url, ok := c.Get("abc123")
		require.True(t, ok)
		assert.Equal(t, "https://example.com/u1", url)
	})

	t.Run("entry expires at exactly one ttl and is evicted", func(t *testing.T) {
		c, clock := newTestCache(DefaultTTL)
		c.Put("abc123", "https://example.com/u1")
		require.Equal(t, 1, c.Len())

		clock.Advance(DefaultTTL)
		url, ok := c.Get("abc123")
		assert.False(t, ok)
		assert.Empty(t, url)
		assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
	})

	t.Run("expired entries stay until read", func(t *testing.T) {
		c, clock := newTestCache(time.Minute)
		c.Put("a", "u-a")
		c.Put("b", "u-b")

		clock.Advance(2 * time.Minute)
		assert.Equal(t, 2, c.Len())

		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("put refreshes the timestamp", func(t *testing.T) {
		c, clock := newTestCache(time.Hour)
		c.Put("abc123", "u1")
		clock.Advance(50 * time.Minute)
		c.Put("abc123", "u2")
		clock.Advance(50 * time.Minute)

		url, ok := c.Get("abc123")
		require.True(t, ok)
		assert.Equal(t, "u2", url)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		c, _ := newTestCache(time.Hour)
		_, ok := c.Get("nope")
		assert.False(t, ok)
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultTTL, New(0).TTL())
		assert.Equal(t, time.Minute, New(time.Minute).TTL())
	})
}

func TestCacheProperty(t *testing.T) {
	offsets := []time.Duration{0, time.Second, time.Hour, 3*time.Hour + 59*time.Minute, 4 * time.Hour, 5 * time.Hour}

	for _, offset := range offsets {
		t.Run(offset.String(), func(t *testing.T) {
			c, clock := newTestCache(DefaultTTL)
			c.Put("id", "url")
			clock.Advance(offset)

			_, ok := c.Get("id")
			assert.Equal(t, offset < DefaultTTL, ok)
		})
	}
}

func TestCacheCapacity(t *testing.T) {
	t.Run("unbounded by default", func(t *testing.T) {
		c, _ := newTestCache(time.Hour)
		for i := range 1000 {
			c.Put(fmt.Sprintf("id-%d", i), "u")
		}
		assert.Equal(t, 1000, c.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		c, _ := newTestCache(time.Hour, WithCapacity(2))
		c.Put("a", "u-a")
		c.Put("b", "u-b")

		_, ok := c.Get("a")
		require.True(t, ok)

		c.Put("c", "u-c")
		assert.Equal(t, 2, c.Len())

		_, ok = c.Get("b")
		assert.False(t, ok, "b was least recently used")
		_, ok = c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("overwrite does not evict", func(t *testing.T) {
		c, _ := newTestCache(time.Hour, WithCapacity(2))
		c.Put("a", "u1")
		c.Put("b", "u-b")
		c.Put("a", "u2")
		assert.Equal(t, 2, c.Len())

		url, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, "u2", url)
	})

	t.Run("delete", func(t *testing.T) {
		c, _ := newTestCache(time.Hour, WithCapacity(2))
		c.Put("a", "u")
		c.Delete("a")
		c.Delete("missing")
		assert.Equal(t, 0, c.Len())
	})
}

func TestCacheConcurrency(t *testing.T) {
	c := New(time.Hour, WithCapacity(50))

	var wg sync.WaitGroup
	for w := range 16 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range 200 {
				id := fmt.Sprintf("id-%d", i%64)
				url := fmt.Sprintf("u-%d-%d", w, i)
				c.Put(id, url)
				if got, ok := c.Get(id); ok {
					assert.Contains(t, got, "u-")
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
