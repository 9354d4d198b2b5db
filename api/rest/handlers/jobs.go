package handlers

import (
	"net/http"
	"strings"

	"model-lifecycle/core/scheduler"

	"github.com/gorilla/mux"
)

// JobHandler handles training job requests
type JobHandler struct {
	scheduler *scheduler.Scheduler
}

// NewJobHandler creates a new job handler
func NewJobHandler(sched *scheduler.Scheduler) *JobHandler {
	return &JobHandler{scheduler: sched}
}

// CreateJobRequest represents the request to register a training job
type CreateJobRequest struct {
	ID       string `json:"id"`
	ModelID  string `json:"model_id"`
	Schedule string `json:"schedule"`
	Active   *bool  `json:"active,omitempty"`
}

// CreateJob handles POST /v1/training/jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == "" || req.ModelID == "" || strings.TrimSpace(req.Schedule) == "" {
		badRequest(w, "id, model_id and schedule are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if !h.scheduler.CreateJob(req.ID, req.ModelID, req.Schedule, active) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": "Job already exists"})
		return
	}
	job, err := h.scheduler.GetJobStatus(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /v1/training/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.scheduler.GetJobStatus(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /v1/training/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.scheduler.ListJobs()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": jobs,
		"count": len(jobs),
	})
}

// TriggerJob handles POST /v1/training/jobs/{id}/trigger. With ?wait=true the
// run completes before the response is written.
func (h *JobHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if r.URL.Query().Get("wait") == "true" {
		result, err := h.scheduler.TriggerNow(r.Context(), jobID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":     jobID,
			"result": result,
		})
		return
	}

	if err := h.scheduler.Trigger(jobID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":        jobID,
		"triggered": true,
	})
}

// EnableJob handles POST /v1/training/jobs/{id}/enable
func (h *JobHandler) EnableJob(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.EnableJob)
}

// DisableJob handles POST /v1/training/jobs/{id}/disable
func (h *JobHandler) DisableJob(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.DisableJob)
}

func (h *JobHandler) toggle(w http.ResponseWriter, r *http.Request, apply func(string) bool) {
	jobID := mux.Vars(r)["id"]
	if !apply(jobID) {
		notFound(w, "Job not found")
		return
	}
	h.GetJob(w, r)
}

// UpdateScheduleRequest represents a cadence change
type UpdateScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateSchedule handles PUT /v1/training/jobs/{id}/schedule
func (h *JobHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Schedule) == "" {
		badRequest(w, "schedule is required")
		return
	}
	if !h.scheduler.UpdateSchedule(mux.Vars(r)["id"], req.Schedule) {
		notFound(w, "Job not found")
		return
	}
	h.GetJob(w, r)
}

// DeleteJob handles DELETE /v1/training/jobs/{id}
func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	if !h.scheduler.DeleteJob(jobID) {
		notFound(w, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": jobID, "deleted": true})
}

// GetJobEvents handles GET /v1/training/jobs/{id}/events
func (h *JobHandler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.scheduler.JobEvents(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		if len(event.MetaJSON) > 0 {
			item["meta"] = event.MetaJSON
		}
		items[i] = item
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// GetStats handles GET /v1/training/stats
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.GetStats())
}
