package connection

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/drip-forwarder/internal/domain"
)

// StatusCache stores connection statuses under a credential cache key.
type StatusCache interface {
	Get(ctx context.Context, key string) (domain.ConnectionStatus, bool, error)
	Set(ctx context.Context, key string, status domain.ConnectionStatus, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type memoryEntry struct {
	status    domain.ConnectionStatus
	expiresAt time.Time
}

// MemoryCache is a process-local StatusCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.ConnectionStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.ConnectionStatus{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return domain.ConnectionStatus{}, false, nil
	}
	return e.status, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, status domain.ConnectionStatus, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{status: status, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}
