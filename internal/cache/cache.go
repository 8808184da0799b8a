// Package cache holds resolved stream URLs for a fixed time-to-live.
//
// Entries expire lazily: a read that finds an entry older than the TTL removes it and reports a miss.
// There is no background sweeper. Capacity is unbounded unless [WithCapacity] is given, in which case the
// least recently used entry is evicted once the limit is exceeded.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultTTL is how long a resolved URL stays usable. Upstream stream URLs expire after roughly six hours.
const DefaultTTL = 4 * time.Hour

// Entry is a single cached resolution.
type Entry struct {
	VideoID    string
	URL        string
	ResolvedAt time.Time
}

// Option configures a [Cache].
type Option func(*Cache)

// WithCapacity bounds the number of live entries. Zero or a negative value keeps the cache unbounded.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithClock replaces [time.Now] as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache maps video identifiers to resolved URLs. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
}

// New creates a [Cache] whose entries live for ttl. A non-positive ttl falls back to [DefaultTTL].
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached URL for id if it was stored less than one TTL ago.
//
// An expired entry is removed as a side effect.
func (c *Cache) Get(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return "", false
	}

	entry := el.Value.(*Entry)
	if c.now().Sub(entry.ResolvedAt) >= c.ttl {
		c.removeElement(el)
		return "", false
	}

	c.order.MoveToFront(el)
	return entry.URL, true
}

// Put stores url for id with the current time, replacing any previous entry.
func (c *Cache) Put(id, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.entries[id]; ok {
		entry := el.Value.(*Entry)
		entry.URL = url
		entry.ResolvedAt = now
		c.order.MoveToFront(el)
		return
	}

	c.entries[id] = c.order.PushFront(&Entry{VideoID: id, URL: url, ResolvedAt: now})

	if c.capacity > 0 {
		for c.order.Len() > c.capacity {
			c.removeElement(c.order.Back())
		}
	}
}

// Delete drops the entry for id, if any.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		c.removeElement(el)
	}
}

// Len reports the number of stored entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*Entry)
	delete(c.entries, entry.VideoID)
}
