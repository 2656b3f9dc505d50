package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/drip-forwarder/internal/connection"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/drip"
	"github.com/ignite/drip-forwarder/internal/feed"
	"github.com/ignite/drip-forwarder/internal/pkg/httputil"
)

// EntryProcessor runs a form's feeds against a submitted entry.
type EntryProcessor interface {
	ProcessEntry(ctx context.Context, formID int64, entry domain.Entry) ([]feed.Result, error)
}

// SettingsStore reads and writes the add-on settings.
type SettingsStore interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, raw domain.Credentials) (*domain.Settings, error)
}

// ConnectionTester runs an uncached credential check.
type ConnectionTester interface {
	Test(ctx context.Context, creds domain.Credentials) error
}

// FeedbackProvider reports per-field credential feedback.
type FeedbackProvider interface {
	Feedback(ctx context.Context, kind connection.FieldKind, value string, pending domain.Credentials) connection.Feedback
}

// APIInitializer reports whether the Drip API is usable.
type APIInitializer interface {
	Initialize(ctx context.Context) bool
	State() connection.InitState
}

// ChoiceProvider lists the custom field dropdown choices.
type ChoiceProvider interface {
	CustomFieldChoices(ctx context.Context) []drip.CustomFieldChoice
}

// FeedService manages feed configurations.
type FeedService interface {
	List(ctx context.Context, formID int64) ([]domain.FeedConfig, error)
	Get(ctx context.Context, id int64) (*domain.FeedConfig, error)
	Create(ctx context.Context, formID int64, f *domain.FeedConfig) error
	Update(ctx context.Context, id int64, f *domain.FeedConfig) error
	SetActive(ctx context.Context, id int64, active bool) (*domain.FeedConfig, error)
	Delete(ctx context.Context, id int64) error
	Duplicate(ctx context.Context, id int64) (*domain.FeedConfig, error)
}

// NoteLister lists entry notes.
type NoteLister interface {
	ListByEntry(ctx context.Context, entryID string) ([]domain.Note, error)
}

// FeedErrorLister lists recorded feed errors.
type FeedErrorLister interface {
	ListByFeed(ctx context.Context, feedID int64, limit int) ([]domain.FeedError, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Processor   EntryProcessor
	Settings    SettingsStore
	Tester      ConnectionTester
	Feedback    FeedbackProvider
	Initializer APIInitializer
	Choices     ChoiceProvider
	Feeds       FeedService
	Notes       NoteLister
	FeedErrors  FeedErrorLister
}

// Handlers contains all HTTP handlers
type Handlers struct {
	processor   EntryProcessor
	settings    SettingsStore
	tester      ConnectionTester
	feedback    FeedbackProvider
	initializer APIInitializer
	choices     ChoiceProvider
	feeds       FeedService
	notes       NoteLister
	feedErrors  FeedErrorLister
}

// NewHandlers creates a new Handlers instance
func NewHandlers(s Services) *Handlers {
	return &Handlers{
		processor:   s.Processor,
		settings:    s.Settings,
		tester:      s.Tester,
		feedback:    s.Feedback,
		initializer: s.Initializer,
		choices:     s.Choices,
		feeds:       s.Feeds,
		notes:       s.Notes,
		feedErrors:  s.FeedErrors,
	}
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *feed.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.Unprocessable(w, verr.Error(), verr.Fields)
	case errors.Is(err, feed.ErrNotFound):
		httputil.NotFound(w, "feed not found")
	default:
		httputil.InternalError(w, err)
	}
}
