package portal

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 512
	defaultCacheTTL     = time.Minute
)

// CacheConfig configures the list page cache.
type CacheConfig struct {
	// MaxSize is the maximum number of cached pages.
	MaxSize int
	// TTL is how long a cached page remains valid.
	TTL time.Duration
}

type pageEntry struct {
	page     Page
	storedAt time.Time
}

// ListCache caches list pages per tenant, entity and query. Writes drop every
// page of the written entity for that tenant.
type ListCache struct {
	cache *lru.Cache[string, pageEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewListCache creates a cache. Zero config values fall back to defaults.
func NewListCache(config CacheConfig) (*ListCache, error) {
	if config.MaxSize <= 0 {
		config.MaxSize = defaultCacheMaxSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, pageEntry](config.MaxSize)
	if err != nil {
		return nil, err
	}
	return &ListCache{cache: cache, ttl: config.TTL, now: time.Now}, nil
}

// Get returns a cached page when present and not expired
func (c *ListCache) Get(tenantID, entity string, q ListQuery) (Page, bool) {
	key := cacheKey(tenantID, entity, q)
	entry, ok := c.cache.Get(key)
	if !ok {
		return Page{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.cache.Remove(key)
		return Page{}, false
	}
	return clonePage(entry.page), true
}

// Put stores a page
func (c *ListCache) Put(tenantID, entity string, q ListQuery, page Page) {
	c.cache.Add(cacheKey(tenantID, entity, q), pageEntry{page: clonePage(page), storedAt: c.now()})
}

// Invalidate drops all cached pages of entity for the tenant. It matches
// InvalidateFunc.
func (c *ListCache) Invalidate(tenantID, entity string) {
	prefix := entityPrefix(tenantID, entity)
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

// Len returns the number of cached pages
func (c *ListCache) Len() int {
	return c.cache.Len()
}

func entityPrefix(tenantID, entity string) string {
	return tenantID + "\x00" + entity + "\x00"
}

func cacheKey(tenantID, entity string, q ListQuery) string {
	return entityPrefix(tenantID, entity) + q.Key()
}

func clonePage(p Page) Page {
	items := make([]Record, len(p.Items))
	for i, r := range p.Items {
		items[i] = r.Clone()
	}
	p.Items = items
	return p
}
