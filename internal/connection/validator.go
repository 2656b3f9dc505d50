package connection

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/distlock"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

const msgMissingCredentials = "API token and Account ID are required."

// Tester performs one live credential check.
type Tester interface {
	TestConnection(ctx context.Context, creds domain.Credentials) error
}

// writeLocker is implemented by caches shared between processes.
type writeLocker interface {
	WriteLock(key string) distlock.Locker
}

// Validator checks credentials through a TTL cache.
type Validator struct {
	tester     Tester
	cache      StatusCache
	successTTL time.Duration
	failureTTL time.Duration
	now        func() time.Time
}

// NewValidator creates a validator. A nil cache gets an in-memory one.
func NewValidator(tester Tester, cache StatusCache, cfg config.ConnectionConfig) *Validator {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Validator{
		tester:     tester,
		cache:      cache,
		successTTL: cfg.SuccessTTL(),
		failureTTL: cfg.FailureTTL(),
		now:        time.Now,
	}
}

// Test checks creds without touching the cache.
func (v *Validator) Test(ctx context.Context, creds domain.Credentials) error {
	return v.tester.TestConnection(ctx, creds)
}

// Check returns the cached status for creds, probing on a miss. Incomplete
// credentials are reported invalid without a network call or cache write.
func (v *Validator) Check(ctx context.Context, creds domain.Credentials) domain.ConnectionStatus {
	if !creds.Complete() {
		return domain.ConnectionStatus{
			Valid:        false,
			ErrorMessage: msgMissingCredentials,
			CheckedAt:    v.now().UTC(),
		}
	}

	key := creds.CacheKey()
	if status, ok, err := v.cache.Get(ctx, key); err != nil {
		logger.Warn("connection: status cache read failed", "error", err)
	} else if ok {
		return status
	}

	status := domain.ConnectionStatus{Valid: true, CheckedAt: v.now().UTC()}
	ttl := v.successTTL
	if err := v.tester.TestConnection(ctx, creds); err != nil {
		status.Valid = false
		status.ErrorMessage = domain.MessageOf(err)
		ttl = v.failureTTL
		if ctx.Err() != nil {
			// A cancelled caller is not a verdict on the credentials.
			return status
		}
	}

	v.store(ctx, key, status, ttl)
	return status
}

func (v *Validator) store(ctx context.Context, key string, status domain.ConnectionStatus, ttl time.Duration) {
	write := func(ctx context.Context) error {
		return v.cache.Set(ctx, key, status, ttl)
	}

	var err error
	if wl, ok := v.cache.(writeLocker); ok {
		err = distlock.Run(ctx, wl.WriteLock(key), write)
		if errors.Is(err, distlock.ErrNotAcquired) {
			logger.Debug("connection: another writer holds the status lock")
			return
		}
	} else {
		err = write(ctx)
	}
	if err != nil {
		logger.Warn("connection: status cache write failed", "error", err)
	}
}

// Invalidate drops cached statuses for every given pair.
func (v *Validator) Invalidate(ctx context.Context, creds ...domain.Credentials) {
	keys := make([]string, 0, len(creds))
	for _, c := range creds {
		keys = append(keys, c.CacheKey())
	}
	if err := v.cache.Delete(ctx, keys...); err != nil {
		logger.Warn("connection: status cache invalidation failed", "error", err)
	}
}

// CredentialsChanged drops the statuses of the old and new pair.
func (v *Validator) CredentialsChanged(ctx context.Context, previous, current domain.Credentials) {
	v.Invalidate(ctx, previous, current)
}
