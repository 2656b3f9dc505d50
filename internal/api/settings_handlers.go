package api

import (
	"net/http"

	"github.com/ignite/drip-forwarder/internal/connection"
	"github.com/ignite/drip-forwarder/internal/credentials"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/httputil"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// SettingsResponse is the masked settings view plus per-field feedback.
type SettingsResponse struct {
	Settings domain.Settings                `json:"settings"`
	Feedback map[string]connection.Feedback `json:"feedback,omitempty"`
}

// TestResult is the outcome of an explicit connection test.
type TestResult struct {
	Valid   bool             `json:"valid"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
	Message string           `json:"message,omitempty"`
}

// FeedbackRequest asks for feedback on one settings field.
type FeedbackRequest struct {
	Field   string             `json:"field"`
	Value   string             `json:"value"`
	Pending domain.Credentials `json:"pending"`
}

// StatusResponse reports the memoized API initialization state.
type StatusResponse struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

func masked(s *domain.Settings) domain.Settings {
	out := *s
	out.Credentials = s.Credentials.Masked()
	return out
}

// GetSettings returns the stored settings with the token masked.
//
//	GET /api/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, SettingsResponse{Settings: masked(s)})
}

// SaveSettings normalizes and stores the credentials, then reports
// feedback for both fields against the saved pair.
//
//	PUT /api/settings
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var raw domain.Credentials
	if !httputil.Decode(w, r, &raw) {
		return
	}

	saved, err := h.settings.Save(r.Context(), raw)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	fb := map[string]connection.Feedback{
		connection.FieldAPIToken.String():  h.feedback.Feedback(r.Context(), connection.FieldAPIToken, saved.APIToken, saved.Credentials),
		connection.FieldAccountID.String(): h.feedback.Feedback(r.Context(), connection.FieldAccountID, saved.AccountID, saved.Credentials),
	}

	logger.Info("api: settings saved", "account_id", saved.AccountID)
	httputil.OK(w, SettingsResponse{Settings: masked(saved), Feedback: fb})
}

// TestSettings runs a live credential check. A body with neither field set
// tests the stored credentials.
//
//	POST /api/settings/test
func (h *Handlers) TestSettings(w http.ResponseWriter, r *http.Request) {
	var raw domain.Credentials
	if !httputil.DecodeOptional(w, r, &raw) {
		return
	}

	creds := credentials.Prepare(raw)
	if creds.APIToken == "" && creds.AccountID == "" {
		s, err := h.settings.Get(r.Context())
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		creds = s.Credentials
	}

	if err := h.tester.Test(r.Context(), creds); err != nil {
		httputil.OK(w, TestResult{Kind: domain.KindOf(err), Message: domain.MessageOf(err)})
		return
	}
	httputil.OK(w, TestResult{Valid: true})
}

// SettingsFeedback returns the validity marker for one settings field.
//
//	POST /api/settings/feedback
func (h *Handlers) SettingsFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	kind, ok := connection.ParseFieldKind(req.Field)
	if !ok {
		httputil.BadRequest(w, "unknown field: "+req.Field)
		return
	}
	httputil.OK(w, map[string]connection.Feedback{
		"feedback": h.feedback.Feedback(r.Context(), kind, req.Value, req.Pending),
	})
}

// SettingsStatus initializes the API if needed and reports the result.
//
//	GET /api/settings/status
func (h *Handlers) SettingsStatus(w http.ResponseWriter, r *http.Request) {
	h.initializer.Initialize(r.Context())

	switch st := h.initializer.State().(type) {
	case connection.Valid:
		httputil.OK(w, StatusResponse{State: "valid"})
	case connection.Invalid:
		httputil.OK(w, StatusResponse{State: "invalid", Message: st.Message})
	default:
		httputil.OK(w, StatusResponse{State: "unchecked"})
	}
}

// ListCustomFields returns the Drip custom field choices.
//
//	GET /api/custom-fields
func (h *Handlers) ListCustomFields(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.choices.CustomFieldChoices(r.Context()))
}
