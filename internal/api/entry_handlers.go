package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/feed"
	"github.com/ignite/drip-forwarder/internal/pkg/httputil"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// SubmitEntry runs every active feed of the form against the posted entry.
//
//	POST /api/forms/{formID}/entries
func (h *Handlers) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.IDParam(w, r, "formID")
	if !ok {
		return
	}

	var entry domain.Entry
	if !httputil.Decode(w, r, &entry) {
		return
	}
	if entry.FormID == "" {
		entry.FormID = strconv.FormatInt(formID, 10)
	}

	results, err := h.processor.ProcessEntry(r.Context(), formID, entry)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if results == nil {
		results = []feed.Result{}
	}

	logger.Info("api: entry processed", "form_id", formID, "entry_id", entry.ID, "feeds", len(results))
	httputil.OK(w, map[string]interface{}{
		"entry_id": entry.ID,
		"results":  results,
	})
}

// ListEntryNotes returns the notes recorded on an entry.
//
//	GET /api/entries/{entryID}/notes
func (h *Handlers) ListEntryNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListByEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	httputil.OK(w, notes)
}
