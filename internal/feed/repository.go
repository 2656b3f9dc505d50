package feed

import (
	"context"

	"github.com/ignite/drip-forwarder/internal/domain"
)

// Repository defines the data access contract for feeds.
type Repository interface {
	// List returns every feed of a form, ordered by ID.
	List(ctx context.Context, formID int64) ([]domain.FeedConfig, error)

	// ListActive returns the active feeds of a form, ordered by ID.
	ListActive(ctx context.Context, formID int64) ([]domain.FeedConfig, error)

	// Get returns a feed by ID, or ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.FeedConfig, error)

	// Create inserts f and sets its ID and timestamps.
	Create(ctx context.Context, f *domain.FeedConfig) error

	// Update replaces f. Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, f *domain.FeedConfig) error

	// Delete removes a feed. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id int64) error
}

// CredentialSource supplies the saved Drip credentials.
type CredentialSource interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

// ConditionEvaluator decides whether a feed applies to an entry.
type ConditionEvaluator interface {
	Evaluate(logic domain.ConditionalLogic, entry domain.Entry) bool
}

// Sender delivers a subscriber record to Drip and returns its ID.
type Sender interface {
	SendSubscriber(ctx context.Context, creds domain.Credentials, record domain.SubscriberRecord) (string, error)
}

// ErrorSink stores user-visible feed errors.
type ErrorSink interface {
	RecordError(ctx context.Context, e *domain.FeedError) error
}

// NoteSink stores entry notes.
type NoteSink interface {
	AddNote(ctx context.Context, n *domain.Note) error
}

// Formatter renders the success note and send-failure message.
type Formatter interface {
	Success(feed domain.FeedConfig, entry domain.Entry, subscriberID string) string
	SendFailure(feed domain.FeedConfig, entry domain.Entry, message string) string
}
