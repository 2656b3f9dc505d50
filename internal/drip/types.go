package drip

import (
	"strings"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/tidwall/gjson"
)

// Messages shown to administrators when Drip gives no detail of its own.
const (
	msgMissingCredentials = "API token and Account ID are required."
	msgConnectionFailed   = "Failed to connect to Drip API. Please check your credentials and try again."
	msgInvalidFallback    = "Unable to verify your Drip API credentials. Please check your token and Account ID, save your settings, and try again."
	msgUnknownStatus      = "Unknown error occurred (HTTP %d)."
)

// SubscribersRequest is the body of POST /{account_id}/subscribers.
type SubscribersRequest struct {
	Subscribers []domain.SubscriberRecord `json:"subscribers"`
}

// CustomFieldChoice is one entry of the provider-field dropdown.
type CustomFieldChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// errorMessage returns the first provider error message in a body shaped
// {"errors":[{"message":"..."}]}, or "".
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(body, "errors.0.message").String())
}

// subscriberID returns subscribers[0].id from a success body, or "".
// Drip has returned both string and numeric ids.
func subscriberID(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "subscribers.0.id").String()
}

// customFieldIdentifiers reads custom_field_identifiers, accepting plain
// strings as well as {"id": "..."} objects.
func customFieldIdentifiers(body []byte) []string {
	if !gjson.ValidBytes(body) {
		return nil
	}
	list := gjson.GetBytes(body, "custom_field_identifiers")
	if !list.IsArray() {
		return nil
	}

	var out []string
	list.ForEach(func(_, item gjson.Result) bool {
		var id string
		switch {
		case item.Type == gjson.String:
			id = item.String()
		case item.IsObject():
			if v := item.Get("id"); v.Type == gjson.String {
				id = v.String()
			}
		}
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
		return true
	})
	return out
}
