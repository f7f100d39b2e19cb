package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trustscan/backend/internal/domain"
)

// DefaultMaxEntries bounds a MemoryCache created without an explicit limit.
const DefaultMaxEntries = 1000

// ErrValueTooLarge is returned by Set when a single value exceeds the byte budget.
var ErrValueTooLarge = errors.New("cache value exceeds byte budget")

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	value      []byte
	expiration time.Time
	storedAt   time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL expiry. When full, it
// evicts expired entries first and then the oldest stored entry.
type MemoryCache struct {
	data       map[string]cacheItem
	maxEntries int
	maxBytes   int64
	bytes      int64
	mutex      sync.RWMutex
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxBytes bounds the total size of stored values. Zero means no byte limit.
func WithMaxBytes(n int64) MemoryOption {
	return func(c *MemoryCache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewMemoryCache creates a new in-memory cache holding at most maxEntries
// values. A non-positive limit uses DefaultMaxEntries.
func NewMemoryCache(maxEntries int, opts ...MemoryOption) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cache := &MemoryCache{
		data:       make(map[string]cacheItem),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}

	// Start cleanup goroutine to remove expired entries every 10 minutes
	go cache.cleanupExpired(10 * time.Minute)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a copy of value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	size := int64(len(value))
	if c.maxBytes > 0 && size > c.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, size, c.maxBytes)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.removeLocked(key)
	for len(c.data) > 0 && (len(c.data) >= c.maxEntries || c.overBudgetLocked(size)) {
		c.evictLocked()
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	now := c.now()
	c.data[key] = cacheItem{
		value:      stored,
		expiration: now.Add(ttl),
		storedAt:   now,
	}
	c.bytes += size

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.removeLocked(key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}
	return !c.now().After(item.expiration), nil
}

func (c *MemoryCache) overBudgetLocked(incoming int64) bool {
	return c.maxBytes > 0 && c.bytes+incoming > c.maxBytes
}

func (c *MemoryCache) removeLocked(key string) {
	if item, ok := c.data[key]; ok {
		c.bytes -= int64(len(item.value))
		delete(c.data, key)
	}
}

// evictLocked drops expired entries, or the oldest entry if none expired.
// The caller holds the write lock.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	removed := 0
	for key, item := range c.data {
		if now.After(item.expiration) {
			c.removeLocked(key)
			removed++
		}
	}
	if removed > 0 {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, item := range c.data {
		if oldestKey == "" || item.storedAt.Before(oldest) {
			oldestKey, oldest = key, item.storedAt
		}
	}
	if oldestKey != "" {
		c.removeLocked(oldestKey)
	}
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := c.now()
			for key, item := range c.data {
				if now.After(item.expiration) {
					c.removeLocked(key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Bytes returns the total size of the stored values.
func (c *MemoryCache) Bytes() int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.bytes
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
	c.bytes = 0
}
