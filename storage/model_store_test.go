package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *ModelStore {
	t.Helper()
	store, err := NewModelStore(filepath.Join(t.TempDir(), "models"), logger.FromZap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC) }
	return store
}

func artifact(modelID string, version int) *models.SavedModel {
	return &models.SavedModel{
		ModelID: modelID,
		Version: version,
		Type:    "confidence-threshold",
		Metrics: models.EvaluationMetrics{
			Accuracy:        0.9,
			Precision:       0.8,
			Recall:          0.75,
			F1Score:         0.774,
			ROCAUC:          0.88,
			ConfusionMatrix: models.ConfusionMatrix{TruePositives: 30, TrueNegatives: 60, FalsePositives: 7, FalseNegatives: 3},
			Specificity:     0.9,
			Sensitivity:     0.75,
		},
		FeatureImportance: map[string]float64{"confidence": 1},
		Weights:           map[string]float64{"threshold": 0.42},
		TrainingInfo: models.TrainingInfo{
			Samples:      100,
			Features:     1,
			TrainingTime: 1500 * time.Millisecond,
			Timestamp:    time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC),
		},
		Metadata: map[string]interface{}{
			"trigger": "daily-retrain",
			"tenants": []interface{}{"acme", "globex"},
			"shadow":  false,
			"score":   0.5,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	saved := artifact("m1", 1)

	path, err := store.Save(saved)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "m1_v1.json"), path)

	loaded, err := store.Load("m1", 1)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLatestAndList(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(artifact("m1", 1))
	require.NoError(t, err)
	_, err = store.Save(artifact("m1", 2))
	require.NoError(t, err)

	latest, err := store.Latest("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	assert.Equal(t, []models.ModelVersions{{ModelID: "m1", Versions: []int{1, 2}}}, store.List())
}

func TestListGroupsAndSorts(t *testing.T) {
	store := newTestStore(t)
	for _, a := range []*models.SavedModel{artifact("zeta", 10), artifact("alpha", 2), artifact("zeta", 9), artifact("alpha_v2", 1)} {
		_, err := store.Save(a)
		require.NoError(t, err)
	}
	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), ".tmp-123"), []byte("{"), 0o644))

	assert.Equal(t, []models.ModelVersions{
		{ModelID: "alpha", Versions: []int{2}},
		{ModelID: "alpha_v2", Versions: []int{1}},
		{ModelID: "zeta", Versions: []int{9, 10}},
	}, store.List())
}

func TestListOnMissingDirectory(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.RemoveAll(store.Dir()))
	assert.Empty(t, store.List())
}

func TestLoadErrors(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Latest("unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Load("m1", 4)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Load("../etc", 1)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "m1_v1.json"), []byte("{broken"), 0o644))
	_, err = store.Load("m1", 1)
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestSaveValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(artifact("m1", 0))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = store.Save(artifact("bad/id", 1))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = store.Save(nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(artifact("m1", 1))
	require.NoError(t, err)

	deleted, err := store.Delete("m1", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete("m1", 1)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, store.List())
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	for v := 1; v <= 3; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}

	deleted, err := store.Prune("m1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []models.ModelVersions{{ModelID: "m1", Versions: []int{3}}}, store.List())

	deleted, err = store.Prune("m1", DefaultKeep)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	_, err = store.Prune("m1", 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPruneSparesActiveVersion(t *testing.T) {
	store := newTestStore(t)
	for v := 1; v <= 4; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}
	require.NoError(t, store.SetActive("m1", 2, "pinned"))

	deleted, err := store.Prune("m1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	versions, err := store.Versions("m1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, versions, "the pin is kept on top of keep")
}

func TestSaveNextAssignsVersions(t *testing.T) {
	store := newTestStore(t)

	next, err := store.NextVersion("m1")
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	_, err = store.NextVersion("../etc")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.SaveNext(artifact("m1", 0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := store.Versions("m1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, versions)
	next, err = store.NextVersion("m1")
	require.NoError(t, err)
	assert.Equal(t, 9, next)

	version, path, err := store.SaveNext(artifact("m1", 0))
	require.NoError(t, err)
	assert.Equal(t, 9, version)
	assert.FileExists(t, path)
}

func TestActiveAndRollback(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Rollback("m1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	for v := 1; v <= 3; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}

	active, err := store.ActiveVersion("m1")
	require.NoError(t, err)
	assert.Equal(t, 3, active, "latest is active without a pin")

	prev, err := store.Rollback("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, prev)

	model, err := store.Active("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, model.Version)

	latest, err := store.Latest("m1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version, "rollback never deletes versions")

	prev, err = store.Rollback("m1")
	require.NoError(t, err)
	assert.Equal(t, 1, prev)

	_, err = store.Rollback("m1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, store.SetActive("m1", 7, "manual"), models.ErrNotFound)
}

func TestDemoteLatestSettlesOnSecondHighest(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(artifact("m1", 1))
	require.NoError(t, err)
	_, err = store.DemoteLatest("m1")
	assert.ErrorIs(t, err, models.ErrNotFound, "a single version has nothing to fall back to")

	for v := 2; v <= 3; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}
	require.NoError(t, store.SetActive("m1", 3, "trained"))

	// consecutive failed training chains land on the same version
	for i := 0; i < 3; i++ {
		active, err := store.DemoteLatest("m1")
		require.NoError(t, err)
		assert.Equal(t, 2, active)
	}

	require.NoError(t, store.SetActive("m1", 1, "manual"))
	active, err := store.DemoteLatest("m1")
	require.NoError(t, err)
	assert.Equal(t, 1, active, "an older pin is left alone")

	_, err = store.DemoteLatest("../etc")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMetadataNumbersLoadAsFloat64(t *testing.T) {
	store := newTestStore(t)
	saved := artifact("m1", 1)
	saved.Metadata["epochs"] = 3

	_, err := store.Save(saved)
	require.NoError(t, err)

	loaded, err := store.Load("m1", 1)
	require.NoError(t, err)
	assert.Equal(t, float64(3), loaded.Metadata["epochs"])
}

func TestActiveFallsBackWhenPinnedVersionDeleted(t *testing.T) {
	store := newTestStore(t)
	for v := 1; v <= 2; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}
	require.NoError(t, store.SetActive("m1", 1, "manual"))

	_, err := store.Delete("m1", 1)
	require.NoError(t, err)

	active, err := store.ActiveVersion("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, active)
}

type recordingMirror struct {
	mu   sync.Mutex
	keys []string
}

func (m *recordingMirror) Upload(_ context.Context, key string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func TestBackup(t *testing.T) {
	store := newTestStore(t)
	mirror := &recordingMirror{}
	store.SetBackupMirror(mirror)

	for v := 1; v <= 2; v++ {
		_, err := store.Save(artifact("m1", v))
		require.NoError(t, err)
	}
	require.NoError(t, store.SetActive("m1", 1, "manual"))

	dest, err := store.Backup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(store.Dir()), filepath.Dir(dest))
	assert.Equal(t, "models-backup-20261016T083000.000000000Z", filepath.Base(dest))
	for _, name := range []string{"m1_v1.json", "m1_v2.json", "m1.active.json"} {
		assert.FileExists(t, filepath.Join(dest, name))
		assert.Contains(t, mirror.keys, filepath.Base(dest)+"/"+name)
	}

	// live versions are untouched
	assert.Equal(t, []models.ModelVersions{{ModelID: "m1", Versions: []int{1, 2}}}, store.List())

	// a second backup in the same instant collides
	_, err = store.Backup(context.Background())
	assert.ErrorIs(t, err, models.ErrIO)
}
