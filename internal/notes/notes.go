// Package notes renders the messages attached to entries after a feed runs.
// Templates use the Liquid language and are compiled once at startup.
package notes

import (
	"fmt"
	"strconv"

	"github.com/osteele/liquid"

	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Renderer holds the compiled note templates.
type Renderer struct {
	success     *liquid.Template
	successNoID *liquid.Template
	sendFailure *liquid.Template
}

// NewRenderer compiles the configured templates. A syntax error in any of
// them is returned so a bad config fails at startup.
func NewRenderer(cfg config.NotesConfig) (*Renderer, error) {
	engine := liquid.NewEngine()

	parse := func(name, src string) (*liquid.Template, error) {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		return tpl, nil
	}

	var r Renderer
	var err error
	if r.success, err = parse("success", cfg.SuccessTemplate); err != nil {
		return nil, err
	}
	if r.successNoID, err = parse("success_no_id", cfg.SuccessTemplateNoID); err != nil {
		return nil, err
	}
	if r.sendFailure, err = parse("error", cfg.ErrorTemplate); err != nil {
		return nil, err
	}
	return &r, nil
}

func bindings(feed domain.FeedConfig, entry domain.Entry) map[string]interface{} {
	return map[string]interface{}{
		"feed_id":   strconv.FormatInt(feed.ID, 10),
		"feed_name": feed.DisplayName(),
		"entry_id":  entry.ID,
		"form_id":   entry.FormID,
	}
}

// Success is the note added after Drip accepted the subscriber.
func (r *Renderer) Success(feed domain.FeedConfig, entry domain.Entry, subscriberID string) string {
	if subscriberID == "" {
		return render(r.successNoID, bindings(feed, entry), "Subscriber created in Drip.")
	}
	b := bindings(feed, entry)
	b["subscriber_id"] = subscriberID
	return render(r.success, b, "Subscriber created in Drip. ID: "+subscriberID)
}

// SendFailure is the feed error recorded when the Drip call fails.
func (r *Renderer) SendFailure(feed domain.FeedConfig, entry domain.Entry, message string) string {
	b := bindings(feed, entry)
	b["message"] = message
	return render(r.sendFailure, b, "Error subscribing to Drip: "+message)
}

// render falls back to a fixed text when the template fails at runtime.
func render(tpl *liquid.Template, b map[string]interface{}, fallback string) string {
	out, err := tpl.RenderString(b)
	if err != nil {
		logger.Warn("notes: template render failed", "error", err)
		return fallback
	}
	return out
}
