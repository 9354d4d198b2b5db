package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"model-lifecycle/core/feedback"
	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
	"model-lifecycle/core/monitoring"
	"model-lifecycle/core/scheduler"
	"model-lifecycle/storage"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubTrainer struct {
	store *storage.ModelStore
}

func (s stubTrainer) Train(ctx context.Context, modelID string) (*models.TrainingOutcome, error) {
	version, _, err := s.store.SaveNext(&models.SavedModel{ModelID: modelID, Type: "stub"})
	if err != nil {
		return nil, err
	}
	return &models.TrainingOutcome{Version: version}, nil
}

type fixture struct {
	router *mux.Router
	store  *storage.ModelStore
	sched  *scheduler.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.FromZap(zaptest.NewLogger(t))

	collector := feedback.NewCollector(feedback.NewMemoryRepository(), log)
	store, err := storage.NewModelStore(t.TempDir()+"/models", log)
	require.NoError(t, err)
	sched := scheduler.NewScheduler(scheduler.DefaultConfig(), stubTrainer{store: store}, store, log)
	t.Cleanup(sched.Wait)
	metrics := monitoring.NewMetricsExporter(sched)
	sched.SetObserver(metrics)
	collector.SetObserver(metrics)

	r := mux.NewRouter()
	SetupRoutes(r, Dependencies{Collector: collector, Store: store, Scheduler: sched, Metrics: metrics})
	return &fixture{router: r, store: store, sched: sched}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))

	var out map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec, _ = f.do(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "model_training_jobs 0")
}

func TestFeedbackRoutes(t *testing.T) {
	f := newFixture(t)

	rec, created := f.do(t, "POST", "/v1/feedback", map[string]interface{}{
		"request_id": "req-1", "tenant_id": "acme", "reviewer_id": "alice",
		"actual_label": 0, "predicted_label": 1, "confidence": 0.7,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, created["false_positive"])
	assert.Equal(t, false, created["false_negative"])
	id := created["id"].(string)

	rec, _ = f.do(t, "POST", "/v1/feedback", map[string]interface{}{"actual_label": 2, "predicted_label": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, got := f.do(t, "GET", "/v1/feedback/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", got["request_id"])

	rec, updated := f.do(t, "PATCH", "/v1/feedback/"+id, map[string]interface{}{"actual_label": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, updated["false_positive"])

	rec, list := f.do(t, "GET", "/v1/feedback?tenant_id=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), list["count"])

	rec, _ = f.do(t, "GET", "/v1/feedback?kind=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, stats := f.do(t, "GET", "/v1/feedback/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), stats["total_labeled"])

	rec, perf := f.do(t, "GET", "/v1/feedback/performance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), perf["accuracy_on_feedback"])

	rec, _ = f.do(t, "DELETE", "/v1/feedback/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, "DELETE", "/v1/feedback/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, "GET", "/v1/feedback/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelRoutes(t *testing.T) {
	f := newFixture(t)
	for v := 1; v <= 3; v++ {
		_, err := f.store.Save(&models.SavedModel{ModelID: "m1", Version: v, Type: "stub"})
		require.NoError(t, err)
	}

	rec, list := f.do(t, "GET", "/v1/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := list["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, items[0].(map[string]interface{})["versions"])

	rec, latest := f.do(t, "GET", "/v1/models/m1/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), latest["version"])

	rec, _ = f.do(t, "GET", "/v1/models/m1/versions/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, "GET", "/v1/models/m1/versions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, rolled := f.do(t, "POST", "/v1/models/m1/rollback", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), rolled["active_version"])

	rec, active := f.do(t, "GET", "/v1/models/m1/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), active["version"])

	rec, pruned := f.do(t, "POST", "/v1/models/m1/prune?keep=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), pruned["deleted"])
	assert.Equal(t, []interface{}{float64(2), float64(3)}, pruned["versions"])
	assert.Equal(t, float64(2), pruned["active_version"])
	assert.Equal(t, true, pruned["pinned_beyond_keep"])

	rec, _ = f.do(t, "POST", "/v1/models/m1/prune?keep=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, "POST", "/v1/models/m1/activate/3", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, "POST", "/v1/models/m1/activate/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, "DELETE", "/v1/models/m1/versions/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, "DELETE", "/v1/models/m1/versions/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, backup := f.do(t, "POST", "/v1/models/backup", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, backup["path"], "-backup-")
}

func TestTrainingRoutes(t *testing.T) {
	f := newFixture(t)

	rec, job := f.do(t, "POST", "/v1/training/jobs", map[string]interface{}{
		"id": "daily", "model_id": "m1", "schedule": "0 2 * * *",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", job["status"])
	assert.Equal(t, true, job["active"])

	rec, _ = f.do(t, "POST", "/v1/training/jobs", map[string]interface{}{
		"id": "daily", "model_id": "m1", "schedule": "0 2 * * *",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = f.do(t, "POST", "/v1/training/jobs", map[string]interface{}{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, run := f.do(t, "POST", "/v1/training/jobs/daily/trigger?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := run["result"].(map[string]interface{})
	assert.Equal(t, true, result["success"])
	assert.Equal(t, float64(1), result["version"])

	rec, _ = f.do(t, "POST", "/v1/training/jobs/daily/trigger", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	f.sched.Wait()

	rec, job = f.do(t, "POST", "/v1/training/jobs/daily/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, job["active"])

	rec, job = f.do(t, "PUT", "/v1/training/jobs/daily/schedule", map[string]interface{}{"schedule": "0 0 * * 0"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0 0 * * 0", job["schedule"])

	rec, job = f.do(t, "POST", "/v1/training/jobs/daily/enable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, job["active"])

	rec, events := f.do(t, "GET", "/v1/training/jobs/daily/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, events["items"])

	rec, stats := f.do(t, "GET", "/v1/training/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), stats["completed_jobs"])

	rec, overview := f.do(t, "GET", "/v1/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	modelsOut := overview["models"].([]interface{})
	require.Len(t, modelsOut, 1)
	assert.Equal(t, float64(2), modelsOut[0].(map[string]interface{})["latest"])

	rec, _ = f.do(t, "DELETE", "/v1/training/jobs/daily", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, "GET", "/v1/training/jobs/daily", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, "POST", "/v1/training/jobs/daily/trigger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, "POST", "/v1/training/jobs/daily/enable", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateRoute(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, "POST", "/v1/evaluate", map[string]interface{}{
		"predictions": []map[string]interface{}{
			{"actual": 1, "predicted": 1},
			{"actual": 1, "predicted": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	metrics := out["metrics"].(map[string]interface{})
	assert.Equal(t, float64(1), metrics["accuracy"])
	assert.Equal(t, 0.5, metrics["roc_auc"])
	assert.Contains(t, out["report"], "Confusion Matrix")

	rec, _ = f.do(t, "POST", "/v1/evaluate", map[string]interface{}{"predictions": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
