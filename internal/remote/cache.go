package remote

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedMetadata holds sniffed metadata with the time it was stored
type cachedMetadata struct {
	meta     Metadata
	cachedAt time.Time
}

// MetadataCache is an LRU cache of resolved sniff results keyed by URL.
// Thread-safe, uses hashicorp/golang-lru under the hood
type MetadataCache struct {
	cache *lru.Cache[string, *cachedMetadata]
	ttl   time.Duration
	mu    sync.RWMutex

	hits   uint64
	misses uint64
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(maxSize int, ttl time.Duration) (*MetadataCache, error) {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	cache, err := lru.New[string, *cachedMetadata](maxSize)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to create metadata cache: %w", err)
	}

	return &MetadataCache{
		cache: cache,
		ttl:   ttl,
	}, nil
}

// Get returns cached metadata for url.
// Returns false if the entry is missing, expired, or the cache is nil
func (c *MetadataCache) Get(url string) (Metadata, bool) {
	if c == nil || c.cache == nil {
		return Metadata{}, false
	}

	c.mu.RLock()
	cached, ok := c.cache.Get(url)
	c.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return Metadata{}, false
	}

	if time.Since(cached.cachedAt) > c.ttl {
		// Re-check under write lock so a fresh Set between RUnlock and Lock survives.
		c.mu.Lock()
		current, stillExists := c.cache.Get(url)
		if stillExists && time.Since(current.cachedAt) > c.ttl {
			c.cache.Remove(url)
		}
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return Metadata{}, false
	}

	atomic.AddUint64(&c.hits, 1)
	return cached.meta, true
}

// Set stores resolved metadata; unresolved results are not cached.
func (c *MetadataCache) Set(url string, meta Metadata) {
	if c == nil || c.cache == nil || !meta.Resolved {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(url, &cachedMetadata{
		meta:     meta,
		cachedAt: time.Now(),
	})
}

// Purge clears the entire cache
func (c *MetadataCache) Purge() {
	if c == nil || c.cache == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

// Len returns the number of cached entries
func (c *MetadataCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// Stats returns hit and miss counters
func (c *MetadataCache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}
