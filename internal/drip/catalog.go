package drip

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// CredentialSource supplies the saved credentials for background refreshes.
type CredentialSource interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

type identifierLister interface {
	CustomFieldIdentifiers(ctx context.Context, creds domain.Credentials) ([]string, error)
}

type catalogEntry struct {
	ids       []string
	fetchedAt time.Time
}

// Catalog caches custom field identifiers per credential pair.
type Catalog struct {
	client identifierLister
	source CredentialSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	entries   map[string]catalogEntry
	isRunning bool
}

// NewCatalog creates a catalog. A zero ttl disables caching.
func NewCatalog(client *Client, source CredentialSource, ttl time.Duration) *Catalog {
	return newCatalog(client, source, ttl)
}

func newCatalog(client identifierLister, source CredentialSource, ttl time.Duration) *Catalog {
	return &Catalog{
		client:  client,
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]catalogEntry),
	}
}

// Identifiers returns the cached identifiers for creds, fetching them when
// missing or stale.
func (c *Catalog) Identifiers(ctx context.Context, creds domain.Credentials) ([]string, error) {
	key := creds.CacheKey()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.ids, nil
	}

	return c.fetch(ctx, creds)
}

func (c *Catalog) fetch(ctx context.Context, creds domain.Credentials) ([]string, error) {
	ids, err := c.client.CustomFieldIdentifiers(ctx, creds)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[creds.CacheKey()] = catalogEntry{ids: ids, fetchedAt: c.now()}
	c.mu.Unlock()
	return ids, nil
}

// Invalidate drops every cached list.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]catalogEntry)
}

// CredentialsChanged drops every cached list.
func (c *Catalog) CredentialsChanged(context.Context, domain.Credentials, domain.Credentials) {
	c.Invalidate()
}

// Start refreshes the list for the saved credentials every interval until
// ctx is done.
func (c *Catalog) Start(ctx context.Context, interval time.Duration) {
	c.mu.Lock()
	c.isRunning = true
	c.mu.Unlock()

	logger.Info("drip: starting custom field refresh", "interval", interval.String())

	c.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("drip: stopping custom field refresh")
			c.mu.Lock()
			c.isRunning = false
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Catalog) refresh(ctx context.Context) {
	creds, err := c.source.Credentials(ctx)
	if err != nil {
		logger.Warn("drip: custom field refresh skipped", "error", err)
		return
	}
	if !creds.Complete() {
		return
	}
	if _, err := c.fetch(ctx, creds); err != nil {
		logger.Warn("drip: custom field refresh failed", "account_id", creds.AccountID, "error", err)
	}
}

// IsRunning reports whether the refresh loop is active.
func (c *Catalog) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
