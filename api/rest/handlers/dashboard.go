package handlers

import (
	"net/http"
	"time"

	"model-lifecycle/core/feedback"
	"model-lifecycle/core/scheduler"
	"model-lifecycle/storage"
)

// DashboardHandler serves the combined overview document
type DashboardHandler struct {
	collector *feedback.Collector
	store     *storage.ModelStore
	scheduler *scheduler.Scheduler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(collector *feedback.Collector, store *storage.ModelStore, sched *scheduler.Scheduler) *DashboardHandler {
	return &DashboardHandler{
		collector: collector,
		store:     store,
		scheduler: sched,
	}
}

// GetOverview handles GET /v1/overview
func (h *DashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.collector.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	perf, err := h.collector.PerformanceMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var modelItems []map[string]interface{}
	for _, mv := range h.store.List() {
		item := map[string]interface{}{
			"id":       mv.ModelID,
			"versions": mv.Versions,
			"latest":   mv.Versions[len(mv.Versions)-1],
		}
		if active, err := h.store.ActiveVersion(mv.ModelID); err == nil {
			item["active"] = active
		}
		modelItems = append(modelItems, item)
	}

	var jobItems []map[string]interface{}
	for _, job := range h.scheduler.ListJobs() {
		item := map[string]interface{}{
			"id":       job.ID,
			"model_id": job.ModelID,
			"status":   job.Status,
			"active":   job.Active,
			"next_run": job.NextRun,
		}
		if job.LastResult != nil {
			item["last_success"] = job.LastResult.Success
		}
		jobItems = append(jobItems, item)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().UTC(),
		"feedback": map[string]interface{}{
			"statistics":  stats,
			"performance": perf,
		},
		"training": map[string]interface{}{
			"stats": h.scheduler.GetStats(),
			"jobs":  jobItems,
		},
		"models": modelItems,
	})
}
