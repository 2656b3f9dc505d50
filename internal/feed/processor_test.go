package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/drip-forwarder/internal/condition"
	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/notes"
)

var validCreds = domain.Credentials{APIToken: "tok", AccountID: "123456"}

type staticCreds struct {
	creds domain.Credentials
	err   error
}

func (s staticCreds) Credentials(context.Context) (domain.Credentials, error) { return s.creds, s.err }

type fakeSender struct {
	mu      sync.Mutex
	calls   int
	records []domain.SubscriberRecord
	id      string
	err     error
}

func (f *fakeSender) SendSubscriber(_ context.Context, _ domain.Credentials, r domain.SubscriberRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.records = append(f.records, r)
	return f.id, f.err
}

type memorySinks struct {
	mu     sync.Mutex
	errors []domain.FeedError
	notes  []domain.Note
}

func (m *memorySinks) RecordError(_ context.Context, e *domain.FeedError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, *e)
	return nil
}

func (m *memorySinks) AddNote(_ context.Context, n *domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, *n)
	return nil
}

type testEnv struct {
	proc   *Processor
	sender *fakeSender
	sinks  *memorySinks
	repo   *mockRepo
}

func newTestEnv(t *testing.T, creds CredentialSource) *testEnv {
	t.Helper()
	renderer, err := notes.NewRenderer(config.NotesConfig{
		SuccessTemplate:     "Subscriber created in Drip. ID: {{ subscriber_id }}",
		SuccessTemplateNoID: "Subscriber created in Drip.",
		ErrorTemplate:       "Error subscribing to Drip: {{ message }}",
	})
	require.NoError(t, err)

	env := &testEnv{
		sender: &fakeSender{id: "abc123"},
		sinks:  &memorySinks{},
		repo:   newMockRepo(),
	}
	env.proc = NewProcessor(Dependencies{
		Feeds:       env.repo,
		Credentials: creds,
		Conditions:  condition.NewEvaluator(),
		Sender:      env.sender,
		Errors:      env.sinks,
		Notes:       env.sinks,
		Formatter:   renderer,
	})
	return env
}

func emailFeed() domain.FeedConfig {
	return domain.FeedConfig{ID: 5, FormID: 1, Name: "Newsletter", IsActive: true, EmailField: "2"}
}

func TestProcess_Succeeds(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	entry := domain.Entry{ID: "42", Values: map[string]any{"2": "user@example.com"}}

	res := env.proc.Process(context.Background(), emailFeed(), entry)

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, "abc123", res.SubscriberID)
	assert.Equal(t, 1, env.sender.calls)
	assert.Equal(t, domain.SubscriberRecord{Email: "user@example.com"}, env.sender.records[0])

	require.Len(t, env.sinks.notes, 1)
	assert.Equal(t, domain.NoteSuccess, env.sinks.notes[0].Type)
	assert.Contains(t, env.sinks.notes[0].Message, "abc123")
	assert.Equal(t, "42", env.sinks.notes[0].EntryID)
	assert.Empty(t, env.sinks.errors)
}

func TestProcess_SuccessWithoutEntryIDAddsNoNote(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	entry := domain.Entry{Values: map[string]any{"2": "user@example.com"}}

	res := env.proc.Process(context.Background(), emailFeed(), entry)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Empty(t, env.sinks.notes)
}

func TestProcess_SkippedWhenConditionFails(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	feed := emailFeed()
	feed.Condition = domain.ConditionalLogic{
		Enabled:    true,
		ActionType: "show",
		LogicType:  "all",
		Rules:      []domain.ConditionRule{{FieldID: "3", Operator: "is", Value: "yes"}},
	}
	entry := domain.Entry{ID: "42", Values: map[string]any{"2": "user@example.com", "3": "no"}}

	res := env.proc.Process(context.Background(), feed, entry)

	assert.Equal(t, StateSkipped, res.State)
	assert.Empty(t, res.Kind)
	assert.Zero(t, env.sender.calls)
	assert.Empty(t, env.sinks.errors)
	assert.Empty(t, env.sinks.notes)
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name    string
		creds   CredentialSource
		feed    func() domain.FeedConfig
		values  map[string]any
		kind    domain.ErrorKind
		message string
	}{
		{
			name:    "missing credentials",
			creds:   staticCreds{creds: domain.Credentials{APIToken: "tok"}},
			feed:    emailFeed,
			values:  map[string]any{"2": "user@example.com"},
			kind:    domain.KindMissingCredentials,
			message: MsgMissingCredentials,
		},
		{
			name:    "credentials unavailable",
			creds:   staticCreds{err: errors.New("db down")},
			feed:    emailFeed,
			values:  map[string]any{"2": "user@example.com"},
			kind:    domain.KindUnknownError,
			message: MsgCredentialsLoad,
		},
		{
			name:    "email not mapped",
			creds:   staticCreds{creds: validCreds},
			feed:    func() domain.FeedConfig { return domain.FeedConfig{ID: 5} },
			values:  map[string]any{"2": "user@example.com"},
			kind:    domain.KindEmailNotMapped,
			message: "Feed was not processed because an email field is not mapped.",
		},
		{
			name:    "email blank",
			creds:   staticCreds{creds: validCreds},
			feed:    emailFeed,
			values:  map[string]any{"2": ""},
			kind:    domain.KindEmailMissing,
			message: "Feed was not processed because an email address was not provided.",
		},
		{
			name:    "email invalid",
			creds:   staticCreds{creds: validCreds},
			feed:    emailFeed,
			values:  map[string]any{"2": "not-an-email"},
			kind:    domain.KindEmailInvalid,
			message: "Feed was not processed because 'not-an-email' is not a valid email address.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.creds)
			entry := domain.Entry{ID: "42", Values: tt.values}

			res := env.proc.Process(context.Background(), tt.feed(), entry)

			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.message, res.Message)
			assert.Zero(t, env.sender.calls, "API client must not be invoked")

			require.Len(t, env.sinks.errors, 1)
			assert.Equal(t, tt.kind, env.sinks.errors[0].Kind)
			assert.Equal(t, int64(5), env.sinks.errors[0].FeedID)
			require.Len(t, env.sinks.notes, 1)
			assert.Equal(t, domain.NoteError, env.sinks.notes[0].Type)
		})
	}
}

func TestProcess_SendFailure(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	env.sender.err = domain.NewError(domain.KindAPIError, "Email is invalid")
	entry := domain.Entry{ID: "42", Values: map[string]any{"2": "user@example.com"}}

	res := env.proc.Process(context.Background(), emailFeed(), entry)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, domain.KindAPIError, res.Kind)
	assert.Equal(t, "Error subscribing to Drip: Email is invalid", res.Message)
	assert.Equal(t, 1, env.sender.calls, "no retries")
	require.Len(t, env.sinks.errors, 1)
	assert.Equal(t, res.Message, env.sinks.errors[0].Message)
}

func TestProcess_UnclassifiedSendError(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	env.sender.err = errors.New("boom")
	entry := domain.Entry{ID: "42", Values: map[string]any{"2": "user@example.com"}}

	res := env.proc.Process(context.Background(), emailFeed(), entry)
	assert.Equal(t, domain.KindUnknownError, res.Kind)
	assert.Equal(t, "Error subscribing to Drip: boom", res.Message)
}

func TestProcessEntry_RunsActiveFeedsIndependently(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	ctx := context.Background()

	good := emailFeed()
	broken := domain.FeedConfig{FormID: 1, Name: "Broken", IsActive: true, EmailField: "9"}
	inactive := emailFeed()
	inactive.IsActive = false
	other := emailFeed()
	other.FormID = 2
	for _, f := range []*domain.FeedConfig{&broken, &good, &inactive, &other} {
		require.NoError(t, env.repo.Create(ctx, f))
	}

	entry := domain.Entry{ID: "42", FormID: "1", Values: map[string]any{"2": "user@example.com"}}
	results, err := env.proc.ProcessEntry(ctx, 1, entry)
	require.NoError(t, err)
	require.Len(t, results, 2)

	sort.Slice(results, func(i, j int) bool { return results[i].FeedID < results[j].FeedID })
	assert.Equal(t, StateFailed, results[0].State)
	assert.Equal(t, domain.KindEmailMissing, results[0].Kind)
	assert.Equal(t, StateSucceeded, results[1].State)
	assert.Equal(t, 1, env.sender.calls)
}

func TestProcessEntry_RepositoryError(t *testing.T) {
	env := newTestEnv(t, staticCreds{creds: validCreds})
	env.repo.err = errors.New("db down")

	_, err := env.proc.ProcessEntry(context.Background(), 1, domain.Entry{})
	assert.Error(t, err)
}

func TestState(t *testing.T) {
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateSkipped.Terminal())
	assert.False(t, StateMapped.Terminal())
	text, _ := StateFailed.MarshalText()
	assert.Equal(t, "failed", string(text))
}
