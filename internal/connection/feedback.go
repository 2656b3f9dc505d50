package connection

import (
	"context"
	"strings"

	"github.com/ignite/drip-forwarder/internal/credentials"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// FieldKind names a settings field that gets live feedback.
type FieldKind int

const (
	FieldAPIToken FieldKind = iota + 1
	FieldAccountID
)

// ParseFieldKind maps a settings field name to its kind.
func ParseFieldKind(name string) (FieldKind, bool) {
	switch name {
	case "api_token":
		return FieldAPIToken, true
	case "account_id":
		return FieldAccountID, true
	}
	return 0, false
}

func (k FieldKind) String() string {
	switch k {
	case FieldAPIToken:
		return "api_token"
	case FieldAccountID:
		return "account_id"
	}
	return "unknown"
}

// Feedback is the indicator shown next to a settings field. FeedbackNone
// means not enough input to test and is distinct from FeedbackInvalid.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackValid
	FeedbackInvalid
)

func (f Feedback) String() string {
	switch f {
	case FeedbackValid:
		return "valid"
	case FeedbackInvalid:
		return "invalid"
	}
	return "none"
}

// MarshalText encodes the feedback as its string form.
func (f Feedback) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// pairBuilder assembles the pair to test from the edited field's value, the
// values posted alongside it and the saved values.
type pairBuilder func(value string, pending, saved domain.Credentials) domain.Credentials

var pairBuilders = map[FieldKind]pairBuilder{
	FieldAPIToken: func(value string, pending, saved domain.Credentials) domain.Credentials {
		return domain.Credentials{APIToken: value, AccountID: firstNonBlank(pending.AccountID, saved.AccountID)}
	},
	FieldAccountID: func(value string, pending, saved domain.Credentials) domain.Credentials {
		return domain.Credentials{APIToken: firstNonBlank(pending.APIToken, saved.APIToken), AccountID: value}
	},
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FeedbackService computes per-field feedback for the settings page.
type FeedbackService struct {
	source    CredentialSource
	validator *Validator
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(source CredentialSource, validator *Validator) *FeedbackService {
	return &FeedbackService{source: source, validator: validator}
}

// Feedback tests the pair formed by value and its counterpart. The
// counterpart comes from pending first, then from the saved settings.
func (s *FeedbackService) Feedback(ctx context.Context, kind FieldKind, value string, pending domain.Credentials) Feedback {
	build, ok := pairBuilders[kind]
	if !ok || strings.TrimSpace(value) == "" {
		return FeedbackNone
	}

	saved, err := s.source.Credentials(ctx)
	if err != nil {
		logger.Warn("connection: loading saved credentials for feedback failed", "error", err)
	}

	creds := credentials.Prepare(build(value, pending, saved))
	if !creds.Complete() {
		return FeedbackNone
	}

	status := s.validator.Check(ctx, creds)
	if !status.Valid {
		logger.Error("connection: validation failed for settings field", "field", kind.String(), "message", status.ErrorMessage)
		return FeedbackInvalid
	}
	logger.Debug("connection: credentials valid for settings field", "field", kind.String())
	return FeedbackValid
}
