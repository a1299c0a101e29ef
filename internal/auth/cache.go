package auth

import (
	"sync"
	"sync/atomic"
	"time"
)

// AuthCache is a TTL-based in-memory cache with stale-while-revalidate for
// authenticated clients. Uses sync.Map for lock-free reads on the hot path.
type AuthCache struct {
	store sync.Map // map[string]*authCacheEntry (keyed by full API key)
	ttl   time.Duration
}

type authCacheEntry struct {
	client     *ClientContext
	expiresAt  time.Time
	refreshing atomic.Bool
}

// CacheGetResult holds the result of a cache lookup.
type CacheGetResult struct {
	Client       *ClientContext
	Hit          bool // true if a value was found (fresh or stale)
	NeedsRefresh bool // true if expired — caller should refresh in background
}

// NewAuthCache creates a cache with the given TTL.
func NewAuthCache(ttl time.Duration) *AuthCache {
	return &AuthCache{ttl: ttl}
}

// Get performs a non-blocking cache lookup.
// Returns stale entries with NeedsRefresh=true when expired.
func (c *AuthCache) Get(token string) CacheGetResult {
	val, ok := c.store.Load(token)
	if !ok {
		return CacheGetResult{Hit: false}
	}

	entry := val.(*authCacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return CacheGetResult{
			Client: entry.client,
			Hit:    true,
		}
	}

	// Stale hit — signal refresh needed (only one goroutine wins the CAS)
	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return CacheGetResult{
		Client:       entry.client,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores an authenticated client in the cache with a fresh TTL.
func (c *AuthCache) Set(token string, client *ClientContext) {
	c.store.Store(token, &authCacheEntry{
		client:    client,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *AuthCache) Delete(token string) {
	c.store.Delete(token)
}
