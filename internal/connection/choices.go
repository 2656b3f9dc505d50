package connection

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/drip"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// FieldLister lists custom field identifiers for an account.
type FieldLister interface {
	Identifiers(ctx context.Context, creds domain.Credentials) ([]string, error)
}

// ChoiceService builds the custom field dropdown.
type ChoiceService struct {
	initializer *Initializer
	source      CredentialSource
	lister      FieldLister
}

// NewChoiceService creates a choice service.
func NewChoiceService(initializer *Initializer, source CredentialSource, lister FieldLister) *ChoiceService {
	return &ChoiceService{initializer: initializer, source: source, lister: lister}
}

// CustomFieldChoices returns the account's custom fields, minus the
// reserved standard names. Any failure yields an empty list.
func (s *ChoiceService) CustomFieldChoices(ctx context.Context) []drip.CustomFieldChoice {
	if !s.initializer.Initialize(ctx) {
		logger.Debug("connection: API not initialized, no custom fields loaded")
		return []drip.CustomFieldChoice{}
	}

	creds, err := s.source.Credentials(ctx)
	if err != nil || !creds.Complete() {
		return []drip.CustomFieldChoice{}
	}

	ids, err := s.lister.Identifiers(ctx, creds)
	if err != nil {
		logger.Error("connection: failed to retrieve custom fields", "error", err)
		return []drip.CustomFieldChoice{}
	}

	choices := FilterChoices(ids)
	logger.Debug("connection: loaded custom field choices", "count", len(choices))
	return choices
}

// FilterChoices drops blanks and reserved names (case-insensitively) and
// converts the rest to choices.
func FilterChoices(ids []string) []drip.CustomFieldChoice {
	kept := lo.Filter(ids, func(id string, _ int) bool {
		id = strings.TrimSpace(id)
		return id != "" && !lo.Contains(domain.ReservedFieldNames, strings.ToLower(id))
	})
	return lo.Map(kept, func(id string, _ int) drip.CustomFieldChoice {
		id = strings.TrimSpace(id)
		return drip.CustomFieldChoice{Value: id, Label: id}
	})
}
