package cache

import (
	"context"
	"sync"
	"time"
)

// Store holds opaque values by key until they expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
}

// sweepEvery is how many writes pass between purges of expired entries.
const sweepEvery = 256

// Cache is an in-process Store. Values are copied on the way in and out.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	items  map[string]item
	writes int
}

type item struct {
	val       []byte
	expiresAt time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Cache{ttl: ttl, now: time.Now, items: make(map[string]item)}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(it.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return clone(it.val), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = item{val: clone(val), expiresAt: now.Add(c.ttl)}

	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		for k, it := range c.items {
			if !now.Before(it.expiresAt) {
				delete(c.items, k)
			}
		}
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until they are swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
