package mapping

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Messages recorded against the entry when mapping fails.
const (
	MsgEmailNotMapped = "Feed was not processed because an email field is not mapped."
	MsgEmailMissing   = "Feed was not processed because an email address was not provided."
	MsgEmailInvalid   = "Feed was not processed because '%s' is not a valid email address."
)

var validate = validator.New()

// ValidEmail reports whether s is a syntactically valid email address.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// BuildSubscriber resolves feed bindings against entry.
func BuildSubscriber(feed domain.FeedConfig, entry domain.Entry) (*domain.SubscriberRecord, error) {
	ref := feed.EmailRef()
	if ref == "" {
		return nil, domain.NewError(domain.KindEmailNotMapped, MsgEmailNotMapped)
	}

	raw, _ := entry.Value(ref)
	email := strings.TrimSpace(raw)
	if email == "" {
		return nil, domain.NewError(domain.KindEmailMissing, MsgEmailMissing)
	}
	if !ValidEmail(email) {
		return nil, domain.NewError(domain.KindEmailInvalid, MsgEmailInvalid, email)
	}

	record := &domain.SubscriberRecord{Email: email}

	for _, name := range domain.StandardFieldNames {
		fieldRef := strings.TrimSpace(feed.StandardFields[name])
		if fieldRef == "" {
			continue
		}
		v, ok := entry.Value(fieldRef)
		if !ok {
			continue
		}
		if v = Sanitize(v); v != "" {
			record.SetStandard(name, v)
		}
	}

	if custom := customFields(feed.CustomFields, entry); len(custom) > 0 {
		record.CustomFields = custom
	}

	record.Tags = ParseTags(feed.Tags)

	if feed.DoubleOptin {
		optin := true
		record.DoubleOptin = &optin
	}

	logger.Debug("mapping: built subscriber",
		"feed_id", feed.ID,
		"entry_id", entry.ID,
		"email", record.Email,
		"custom_fields", len(record.CustomFields),
		"tags", len(record.Tags),
	)
	return record, nil
}

// customFields resolves the canonical pair list. Only an absent value or
// an empty string skips a pair; "0" is kept. Later keys overwrite earlier.
func customFields(pairs domain.CustomFieldMap, entry domain.Entry) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key := strings.TrimSpace(p.Key)
		ref := strings.TrimSpace(p.Value)
		if key == "" || ref == "" {
			continue
		}
		v, ok := entry.Value(ref)
		if !ok || v == "" {
			continue
		}
		key, v = Sanitize(key), Sanitize(v)
		if key == "" || v == "" {
			continue
		}
		out[key] = v
	}
	return out
}
