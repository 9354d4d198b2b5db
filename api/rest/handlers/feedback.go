package handlers

import (
	"net/http"

	"model-lifecycle/core/feedback"
	"model-lifecycle/core/models"

	"github.com/gorilla/mux"
)

// FeedbackHandler handles reviewer feedback requests
type FeedbackHandler struct {
	collector *feedback.Collector
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(collector *feedback.Collector) *FeedbackHandler {
	return &FeedbackHandler{collector: collector}
}

// Submit handles POST /v1/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub models.FeedbackSubmission
	if err := decodeBody(r, &sub); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	label, err := h.collector.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

// Get handles GET /v1/feedback/{id}
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	label, err := h.collector.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// List handles GET /v1/feedback with one of request_id, tenant_id or kind
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var labels []*models.FeedbackLabel
	var err error
	switch {
	case q.Get("request_id") != "":
		labels, err = h.collector.ListByRequest(r.Context(), q.Get("request_id"))
	case q.Get("tenant_id") != "":
		labels, err = h.collector.ListByTenant(r.Context(), q.Get("tenant_id"))
	case q.Get("kind") == "false_positive":
		labels, err = h.collector.ListFalsePositives(r.Context())
	case q.Get("kind") == "false_negative":
		labels, err = h.collector.ListFalseNegatives(r.Context())
	case q.Get("kind") != "":
		badRequest(w, "kind must be false_positive or false_negative")
		return
	default:
		labels, err = h.collector.All(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": labels,
		"count": len(labels),
	})
}

// Update handles PATCH /v1/feedback/{id}
func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.FeedbackUpdate
	if err := decodeBody(r, &upd); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	label, err := h.collector.Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// Delete handles DELETE /v1/feedback/{id}
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ok, err := h.collector.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		notFound(w, "Feedback not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

// Stats handles GET /v1/feedback/stats
func (h *FeedbackHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.collector.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Performance handles GET /v1/feedback/performance
func (h *FeedbackHandler) Performance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.collector.PerformanceMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}
