package api

import (
	"net/http"
	"strconv"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/httputil"
)

// FeedRow is one line of the feed list.
type FeedRow struct {
	ID       int64  `json:"id"`
	FeedName string `json:"feed_name"`
	FormID   int64  `json:"form_id"`
	IsActive bool   `json:"is_active"`
}

// ListFeeds returns a form's feeds as list columns.
//
//	GET /api/forms/{formID}/feeds
func (h *Handlers) ListFeeds(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.IDParam(w, r, "formID")
	if !ok {
		return
	}

	feeds, err := h.feeds.List(r.Context(), formID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows := make([]FeedRow, 0, len(feeds))
	for _, f := range feeds {
		rows = append(rows, FeedRow{ID: f.ID, FeedName: f.DisplayName(), FormID: f.FormID, IsActive: f.IsActive})
	}
	httputil.OK(w, rows)
}

// createFeedRequest tells an omitted is_active apart from false.
type createFeedRequest struct {
	domain.FeedConfig
	IsActive *bool `json:"is_active"`
}

// CreateFeed validates and stores a new feed. New feeds are active unless
// the body sets is_active to false.
//
//	POST /api/forms/{formID}/feeds
func (h *Handlers) CreateFeed(w http.ResponseWriter, r *http.Request) {
	formID, ok := httputil.IDParam(w, r, "formID")
	if !ok {
		return
	}

	var req createFeedRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	f := req.FeedConfig
	f.IsActive = req.IsActive == nil || *req.IsActive
	if err := h.feeds.Create(r.Context(), formID, &f); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, f)
}

// GetFeed returns one feed.
//
//	GET /api/feeds/{feedID}
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}
	f, err := h.feeds.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, f)
}

// UpdateFeed validates and replaces a feed.
//
//	PUT /api/feeds/{feedID}
func (h *Handlers) UpdateFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}

	var f domain.FeedConfig
	if !httputil.Decode(w, r, &f) {
		return
	}
	if err := h.feeds.Update(r.Context(), id, &f); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, f)
}

// SetFeedActive toggles a feed.
//
//	PUT /api/feeds/{feedID}/active
func (h *Handlers) SetFeedActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	f, err := h.feeds.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, f)
}

// DeleteFeed removes a feed.
//
//	DELETE /api/feeds/{feedID}
func (h *Handlers) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}
	if err := h.feeds.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// DuplicateFeed copies a feed.
//
//	POST /api/feeds/{feedID}/duplicate
func (h *Handlers) DuplicateFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}
	f, err := h.feeds.Duplicate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, f)
}

// ListFeedErrors returns a feed's most recent processing errors.
//
//	GET /api/feeds/{feedID}/errors?limit=50
func (h *Handlers) ListFeedErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r, "feedID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 500 {
		limit = 500
	}

	list, err := h.feedErrors.ListByFeed(r.Context(), id, limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		list = []domain.FeedError{}
	}
	httputil.OK(w, list)
}
