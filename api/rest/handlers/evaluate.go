package handlers

import (
	"net/http"

	"model-lifecycle/core/evaluator"
	"model-lifecycle/core/models"
)

// EvaluateRequest is a batch of labeled predictions
type EvaluateRequest struct {
	Predictions []models.Prediction `json:"predictions"`
}

// Evaluate handles POST /v1/evaluate
func Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	metrics, err := evaluator.Evaluate(req.Predictions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": metrics,
		"report":  evaluator.GenerateReport(metrics),
	})
}
