package profile

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/siteuser/pkg/auth0"
)

// Cache stores provider records by key with a time to live.
type Cache interface {
	// Get returns false when the key is absent or expired.
	Get(ctx context.Context, key string) (*auth0.User, bool, error)
	Set(ctx context.Context, key string, u *auth0.User, ttl time.Duration) error
}

type memoryEntry struct {
	user      auth0.User
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*auth0.User, bool, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mutex.Lock()
		if current, ok := c.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mutex.Unlock()
		return nil, false, nil
	}

	u := cloneUser(entry.user)
	return &u, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, u *auth0.User, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = memoryEntry{
		user:      cloneUser(*u),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
