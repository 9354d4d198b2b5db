package routes

import (
	"net/http"

	"model-lifecycle/api/rest/handlers"
	"model-lifecycle/core/feedback"
	"model-lifecycle/core/monitoring"
	"model-lifecycle/core/scheduler"
	"model-lifecycle/storage"

	"github.com/gorilla/mux"
)

// Dependencies are the components served over HTTP
type Dependencies struct {
	Collector *feedback.Collector
	Store     *storage.ModelStore
	Scheduler *scheduler.Scheduler
	Metrics   *monitoring.MetricsExporter
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, deps Dependencies) {
	feedbackHandler := handlers.NewFeedbackHandler(deps.Collector)
	modelHandler := handlers.NewModelHandler(deps.Store)
	jobHandler := handlers.NewJobHandler(deps.Scheduler)
	dashboardHandler := handlers.NewDashboardHandler(deps.Collector, deps.Store, deps.Scheduler)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/v1").Subrouter()

	// Feedback endpoints
	api.HandleFunc("/feedback", feedbackHandler.Submit).Methods("POST")
	api.HandleFunc("/feedback", feedbackHandler.List).Methods("GET")
	api.HandleFunc("/feedback/stats", feedbackHandler.Stats).Methods("GET")
	api.HandleFunc("/feedback/performance", feedbackHandler.Performance).Methods("GET")
	api.HandleFunc("/feedback/{id}", feedbackHandler.Get).Methods("GET")
	api.HandleFunc("/feedback/{id}", feedbackHandler.Update).Methods("PATCH")
	api.HandleFunc("/feedback/{id}", feedbackHandler.Delete).Methods("DELETE")

	// Model endpoints
	api.HandleFunc("/models", modelHandler.List).Methods("GET")
	api.HandleFunc("/models/backup", modelHandler.Backup).Methods("POST")
	api.HandleFunc("/models/{id}/latest", modelHandler.Latest).Methods("GET")
	api.HandleFunc("/models/{id}/active", modelHandler.Active).Methods("GET")
	api.HandleFunc("/models/{id}/versions/{version}", modelHandler.GetVersion).Methods("GET")
	api.HandleFunc("/models/{id}/versions/{version}", modelHandler.DeleteVersion).Methods("DELETE")
	api.HandleFunc("/models/{id}/prune", modelHandler.Prune).Methods("POST")
	api.HandleFunc("/models/{id}/activate/{version}", modelHandler.Activate).Methods("POST")
	api.HandleFunc("/models/{id}/rollback", modelHandler.Rollback).Methods("POST")

	// Training endpoints
	api.HandleFunc("/training/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/training/jobs", jobHandler.CreateJob).Methods("POST")
	api.HandleFunc("/training/stats", jobHandler.GetStats).Methods("GET")
	api.HandleFunc("/training/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/training/jobs/{id}", jobHandler.DeleteJob).Methods("DELETE")
	api.HandleFunc("/training/jobs/{id}/trigger", jobHandler.TriggerJob).Methods("POST")
	api.HandleFunc("/training/jobs/{id}/enable", jobHandler.EnableJob).Methods("POST")
	api.HandleFunc("/training/jobs/{id}/disable", jobHandler.DisableJob).Methods("POST")
	api.HandleFunc("/training/jobs/{id}/schedule", jobHandler.UpdateSchedule).Methods("PUT")
	api.HandleFunc("/training/jobs/{id}/events", jobHandler.GetJobEvents).Methods("GET")

	// Evaluation and dashboard
	api.HandleFunc("/evaluate", handlers.Evaluate).Methods("POST")
	api.HandleFunc("/overview", dashboardHandler.GetOverview).Methods("GET")
}
