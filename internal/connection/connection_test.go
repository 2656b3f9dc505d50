package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/drip"
)

var (
	goodCreds = domain.Credentials{APIToken: "good-token", AccountID: "123456"}
	badCreds  = domain.Credentials{APIToken: "bad-token", AccountID: "123456"}
	testTTLs  = config.ConnectionConfig{SuccessTTLSeconds: 3600, FailureTTLSeconds: 300}
)

// fakeTester accepts only goodCreds and counts calls.
type fakeTester struct {
	calls atomic.Int32
	delay time.Duration
}

func (p *fakeTester) TestConnection(ctx context.Context, creds domain.Credentials) error {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if ctx.Err() != nil {
		return domain.NewError(domain.KindConnectionError, "Failed to connect to Drip API.")
	}
	if creds == goodCreds {
		return nil
	}
	return domain.NewError(domain.KindInvalidCredentials, "Invalid API Key")
}

type fakeSource struct {
	mu    sync.Mutex
	creds domain.Credentials
	err   error
}

func (s *fakeSource) Credentials(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.err
}

func (s *fakeSource) set(c domain.Credentials) {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryCache_TTL(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", domain.ConnectionStatus{Valid: true}, time.Minute))
	status, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, status.Valid)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok, "entry expires exactly at its TTL")

	require.NoError(t, cache.Set(ctx, "a", domain.ConnectionStatus{}, time.Hour))
	require.NoError(t, cache.Delete(ctx, "a", "missing"))
	_, ok, _ = cache.Get(ctx, "a")
	assert.False(t, ok)
}

func TestRedisCache_RoundTripAndTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client)
	ctx := context.Background()

	in := domain.ConnectionStatus{Valid: false, ErrorMessage: "Invalid API Key", CheckedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, cache.Set(ctx, "k", in, 5*time.Minute))
	assert.True(t, mr.Exists(redisKeyPrefix+"k"))

	out, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.ErrorMessage, out.ErrorMessage)
	assert.True(t, in.CheckedAt.Equal(out.CheckedAt))

	mr.FastForward(6 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "x", in, time.Hour))
	require.NoError(t, cache.Delete(ctx, "x"))
	assert.False(t, mr.Exists(redisKeyPrefix+"x"))
	require.NoError(t, cache.Delete(ctx))
}

func TestValidator_CachesSuccessAndFailure(t *testing.T) {
	tester := &fakeTester{}
	v := NewValidator(tester, nil, testTTLs)
	ctx := context.Background()

	assert.True(t, v.Check(ctx, goodCreds).Valid)
	assert.True(t, v.Check(ctx, goodCreds).Valid)
	assert.Equal(t, int32(1), tester.calls.Load())

	status := v.Check(ctx, badCreds)
	assert.False(t, status.Valid)
	assert.Equal(t, "Invalid API Key", status.ErrorMessage)
	v.Check(ctx, badCreds)
	assert.Equal(t, int32(2), tester.calls.Load())
}

func TestValidator_FailureExpiresBeforeSuccess(t *testing.T) {
	tester := &fakeTester{}
	cache := NewMemoryCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	v := NewValidator(tester, cache, testTTLs)
	ctx := context.Background()

	v.Check(ctx, goodCreds)
	v.Check(ctx, badCreds)
	require.Equal(t, int32(2), tester.calls.Load())

	now = now.Add(10 * time.Minute)
	v.Check(ctx, goodCreds)
	v.Check(ctx, badCreds)
	assert.Equal(t, int32(3), tester.calls.Load(), "only the failure is re-checked")
}

func TestValidator_IncompleteCredentialsNeverCheck(t *testing.T) {
	tester := &fakeTester{}
	v := NewValidator(tester, nil, testTTLs)

	status := v.Check(context.Background(), domain.Credentials{APIToken: "x"})
	assert.False(t, status.Valid)
	assert.Equal(t, msgMissingCredentials, status.ErrorMessage)
	assert.Zero(t, tester.calls.Load())
}

func TestValidator_InvalidateOnCredentialChange(t *testing.T) {
	tester := &fakeTester{}
	v := NewValidator(tester, nil, testTTLs)
	ctx := context.Background()

	v.Check(ctx, goodCreds)
	v.Check(ctx, badCreds)
	v.CredentialsChanged(ctx, goodCreds, badCreds)
	v.Check(ctx, goodCreds)
	v.Check(ctx, badCreds)
	assert.Equal(t, int32(4), tester.calls.Load())
}

func TestValidator_RedisWriterLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	tester := &fakeTester{}
	v := NewValidator(tester, NewRedisCache(client), testTTLs)
	ctx := context.Background()

	// Another process is mid-write for this key.
	require.NoError(t, mr.Set("lock:"+redisKeyPrefix+goodCreds.CacheKey(), "other"))

	assert.True(t, v.Check(ctx, goodCreds).Valid)
	assert.False(t, mr.Exists(redisKeyPrefix+goodCreds.CacheKey()), "loser must not write")

	mr.Del("lock:" + redisKeyPrefix + goodCreds.CacheKey())
	v.Check(ctx, goodCreds)
	assert.True(t, mr.Exists(redisKeyPrefix+goodCreds.CacheKey()))
	assert.False(t, mr.Exists("lock:"+redisKeyPrefix+goodCreds.CacheKey()), "lock released after write")

	ttl := mr.TTL(redisKeyPrefix + goodCreds.CacheKey())
	assert.Equal(t, time.Hour, ttl)
}

func TestInitializer_MemoizesUntilReset(t *testing.T) {
	tester := &fakeTester{}
	source := &fakeSource{creds: goodCreds}
	// no cache layer between initializer and tester
	v := NewValidator(tester, nil, config.ConnectionConfig{})
	initr := NewInitializer(source, v)
	ctx := context.Background()

	assert.IsType(t, Unchecked{}, initr.State())
	assert.True(t, initr.Initialize(ctx))
	assert.True(t, initr.Initialize(ctx))
	assert.IsType(t, Valid{}, initr.State())
	assert.Equal(t, int32(1), tester.calls.Load())

	source.set(badCreds)
	assert.True(t, initr.Initialize(ctx), "memo survives until reset")

	initr.CredentialsChanged(ctx, goodCreds, badCreds)
	assert.IsType(t, Unchecked{}, initr.State())
	assert.False(t, initr.Initialize(ctx))
	state, ok := initr.State().(Invalid)
	require.True(t, ok)
	assert.Equal(t, "Invalid API Key", state.Message)
}

func TestInitializer_MissingCredentials(t *testing.T) {
	tester := &fakeTester{}
	initr := NewInitializer(&fakeSource{}, NewValidator(tester, nil, testTTLs))

	assert.False(t, initr.Initialize(context.Background()))
	assert.Equal(t, Invalid{Message: msgMissingCredentials}, initr.State())
	assert.Zero(t, tester.calls.Load())
}

func TestInitializer_StorageErrorStaysUnchecked(t *testing.T) {
	initr := NewInitializer(&fakeSource{err: errors.New("db down")}, NewValidator(&fakeTester{}, nil, testTTLs))

	assert.False(t, initr.Initialize(context.Background()))
	assert.IsType(t, Unchecked{}, initr.State())
}

func TestInitializer_CancelledCallerDoesNotDecideMemo(t *testing.T) {
	tester := &fakeTester{delay: 20 * time.Millisecond}
	initr := NewInitializer(&fakeSource{creds: goodCreds}, NewValidator(tester, nil, testTTLs))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	initr.Initialize(cancelled)

	assert.True(t, initr.Initialize(context.Background()))
	assert.IsType(t, Valid{}, initr.State())
	assert.Equal(t, int32(1), tester.calls.Load())
}

func TestValidator_CancelledCheckIsNotCached(t *testing.T) {
	tester := &fakeTester{}
	v := NewValidator(tester, nil, testTTLs)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, v.Check(cancelled, goodCreds).Valid)

	assert.True(t, v.Check(context.Background(), goodCreds).Valid)
	assert.Equal(t, int32(2), tester.calls.Load())
}

func TestInitializer_SingleFlight(t *testing.T) {
	tester := &fakeTester{delay: 50 * time.Millisecond}
	initr := NewInitializer(&fakeSource{creds: goodCreds}, NewValidator(tester, nil, config.ConnectionConfig{}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, initr.Initialize(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), tester.calls.Load())
}

func TestFeedback(t *testing.T) {
	tester := &fakeTester{}
	source := &fakeSource{creds: domain.Credentials{APIToken: "good-token", AccountID: "999"}}
	svc := NewFeedbackService(source, NewValidator(tester, nil, testTTLs))
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    FieldKind
		value   string
		pending domain.Credentials
		saved   domain.Credentials
		want    Feedback
	}{
		{"empty value shows nothing", FieldAPIToken, "", domain.Credentials{AccountID: "123456"}, source.creds, FeedbackNone},
		{"token with pending account", FieldAPIToken, "good-token", domain.Credentials{AccountID: "123456"}, source.creds, FeedbackValid},
		{"token with saved account", FieldAPIToken, "good-token", domain.Credentials{}, domain.Credentials{AccountID: "https://www.getdrip.com/123456/"}, FeedbackValid},
		{"account with pending token", FieldAccountID, "123456", domain.Credentials{APIToken: "bad-token"}, source.creds, FeedbackInvalid},
		{"account with saved token", FieldAccountID, "123456", domain.Credentials{}, source.creds, FeedbackValid},
		{"no counterpart shows nothing", FieldAccountID, "123456", domain.Credentials{}, domain.Credentials{}, FeedbackNone},
		{"unknown kind", FieldKind(99), "x", domain.Credentials{}, source.creds, FeedbackNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source.set(tt.saved)
			assert.Equal(t, tt.want, svc.Feedback(ctx, tt.kind, tt.value, tt.pending))
		})
	}
}

func TestParseFieldKind(t *testing.T) {
	k, ok := ParseFieldKind("api_token")
	assert.True(t, ok)
	assert.Equal(t, FieldAPIToken, k)
	k, ok = ParseFieldKind("account_id")
	assert.True(t, ok)
	assert.Equal(t, "account_id", k.String())
	_, ok = ParseFieldKind("other")
	assert.False(t, ok)

	text, _ := FeedbackInvalid.MarshalText()
	assert.Equal(t, "invalid", string(text))
	assert.Equal(t, "none", FeedbackNone.String())
}

type fakeLister struct {
	ids []string
	err error
}

func (f fakeLister) Identifiers(context.Context, domain.Credentials) ([]string, error) {
	return f.ids, f.err
}

func TestCustomFieldChoices(t *testing.T) {
	source := &fakeSource{creds: goodCreds}
	initr := NewInitializer(source, NewValidator(&fakeTester{}, nil, testTTLs))
	lister := fakeLister{ids: []string{"Plan", "EMAIL", "first_name", "", " score ", "Country"}}

	choices := NewChoiceService(initr, source, lister).CustomFieldChoices(context.Background())
	assert.Equal(t, []drip.CustomFieldChoice{
		{Value: "Plan", Label: "Plan"},
		{Value: "score", Label: "score"},
	}, choices)
}

func TestCustomFieldChoices_EmptyWhenNotInitialized(t *testing.T) {
	source := &fakeSource{creds: badCreds}
	initr := NewInitializer(source, NewValidator(&fakeTester{}, nil, testTTLs))

	choices := NewChoiceService(initr, source, fakeLister{ids: []string{"plan"}}).CustomFieldChoices(context.Background())
	assert.Empty(t, choices)
	assert.NotNil(t, choices)
}

func TestCustomFieldChoices_EmptyOnListError(t *testing.T) {
	source := &fakeSource{creds: goodCreds}
	initr := NewInitializer(source, NewValidator(&fakeTester{}, nil, testTTLs))

	choices := NewChoiceService(initr, source, fakeLister{err: errors.New("boom")}).CustomFieldChoices(context.Background())
	assert.Empty(t, choices)
}
