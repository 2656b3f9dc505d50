package feed

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/mapping"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Messages recorded when a feed stops before mapping.
const (
	MsgMissingCredentials = "Feed was not processed because API credentials are not configured."
	MsgCredentialsLoad    = "Feed was not processed because API credentials could not be loaded."
)

// State is a step of the per-submission pipeline.
type State int

const (
	StateGated State = iota
	StateCredentialsChecked
	StateMapped
	StateSent
	StateSucceeded
	StateFailed
	StateSkipped
)

var stateNames = [...]string{
	StateGated:              "gated",
	StateCredentialsChecked: "credentials_checked",
	StateMapped:             "mapped",
	StateSent:               "sent",
	StateSucceeded:          "succeeded",
	StateFailed:             "failed",
	StateSkipped:            "skipped",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether s ends the pipeline.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Result is the outcome of one feed for one entry.
type Result struct {
	FeedID       int64            `json:"feed_id"`
	State        State            `json:"state"`
	Kind         domain.ErrorKind `json:"kind,omitempty"`
	Message      string           `json:"message,omitempty"`
	SubscriberID string           `json:"subscriber_id,omitempty"`
}

// Dependencies wires a Processor.
type Dependencies struct {
	Feeds       Repository
	Credentials CredentialSource
	Conditions  ConditionEvaluator
	Sender      Sender
	Errors      ErrorSink
	Notes       NoteSink
	Formatter   Formatter
}

// Processor runs entries through feeds. It is safe for concurrent use.
type Processor struct {
	deps Dependencies
	now  func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(deps Dependencies) *Processor {
	return &Processor{deps: deps, now: time.Now}
}

// ProcessEntry runs entry through every active feed of formID in order.
func (p *Processor) ProcessEntry(ctx context.Context, formID int64, entry domain.Entry) ([]Result, error) {
	feeds, err := p.deps.Feeds.ListActive(ctx, formID)
	if err != nil {
		return nil, err
	}

	logger.Debug("feed: processing entry", "form_id", formID, "entry_id", entry.ID, "feeds", len(feeds))

	results := make([]Result, 0, len(feeds))
	for _, f := range feeds {
		results = append(results, p.Process(ctx, f, entry))
	}
	return results, nil
}

// Process runs one feed for one entry and returns its terminal result.
func (p *Processor) Process(ctx context.Context, feed domain.FeedConfig, entry domain.Entry) Result {
	res := Result{FeedID: feed.ID, State: StateGated}
	log := []any{"feed_id", feed.ID, "entry_id", entry.ID}

	if !p.deps.Conditions.Evaluate(feed.Condition, entry) {
		logger.Debug("feed: condition not met, skipping", log...)
		res.State = StateSkipped
		return res
	}

	creds, err := p.deps.Credentials.Credentials(ctx)
	if err != nil {
		logger.Error("feed: loading credentials failed", append(log, "error", err)...)
		return p.fail(ctx, feed, entry, res, domain.KindUnknownError, MsgCredentialsLoad)
	}
	if !creds.Complete() {
		return p.fail(ctx, feed, entry, res, domain.KindMissingCredentials, MsgMissingCredentials)
	}
	res.State = StateCredentialsChecked

	record, err := mapping.BuildSubscriber(feed, entry)
	if err != nil {
		return p.fail(ctx, feed, entry, res, kindOrUnknown(err), domain.MessageOf(err))
	}
	res.State = StateMapped

	logger.Debug("feed: sending subscriber", append(log, "email", record.Email)...)
	id, err := p.deps.Sender.SendSubscriber(ctx, creds, *record)
	res.State = StateSent
	if err != nil {
		msg := p.deps.Formatter.SendFailure(feed, entry, domain.MessageOf(err))
		return p.fail(ctx, feed, entry, res, kindOrUnknown(err), msg)
	}

	res.State = StateSucceeded
	res.SubscriberID = id
	logger.Info("feed: subscriber sent", append(log, "subscriber_id", id)...)

	if entry.ID != "" {
		p.addNote(ctx, entry, domain.NoteSuccess, p.deps.Formatter.Success(feed, entry, id))
	}
	return res
}

// fail records the failure against the entry and returns the terminal result.
func (p *Processor) fail(ctx context.Context, feed domain.FeedConfig, entry domain.Entry, res Result, kind domain.ErrorKind, msg string) Result {
	logger.Error("feed: not processed",
		"feed_id", feed.ID,
		"entry_id", entry.ID,
		"from_state", res.State.String(),
		"kind", string(kind),
		"message", msg,
	)

	res.State = StateFailed
	res.Kind = kind
	res.Message = msg

	fe := &domain.FeedError{
		FeedID:    feed.ID,
		EntryID:   entry.ID,
		Kind:      kind,
		Message:   msg,
		CreatedAt: p.now().UTC(),
	}
	if err := p.deps.Errors.RecordError(ctx, fe); err != nil {
		logger.Error("feed: recording feed error failed", "feed_id", feed.ID, "error", err)
	}
	if entry.ID != "" {
		p.addNote(ctx, entry, domain.NoteError, msg)
	}
	return res
}

func (p *Processor) addNote(ctx context.Context, entry domain.Entry, typ domain.NoteType, msg string) {
	note := &domain.Note{
		EntryID:   entry.ID,
		Type:      typ,
		Message:   msg,
		CreatedAt: p.now().UTC(),
	}
	if err := p.deps.Notes.AddNote(ctx, note); err != nil {
		logger.Error("feed: adding entry note failed", "entry_id", entry.ID, "error", err)
	}
}

func kindOrUnknown(err error) domain.ErrorKind {
	var e *domain.Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return domain.KindUnknownError
}
