package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
	"model-lifecycle/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, versions ...int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "models")
	store, err := storage.NewModelStore(dir, logger.Nop())
	require.NoError(t, err)
	for _, v := range versions {
		_, err := store.Save(&models.SavedModel{
			ModelID: "threat-detector",
			Version: v,
			Type:    "confidence-threshold",
			Metrics: models.EvaluationMetrics{Accuracy: 0.9},
		})
		require.NoError(t, err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListAndShow(t *testing.T) {
	dir := seedStore(t, 1, 2)

	out, err := run(t, "list", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "threat-detector\tversions=[1,2]\tactive=2")

	out, err = run(t, "show", "threat-detector", "1", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "threat-detector v1 (confidence-threshold)")
	assert.Contains(t, out, "Confusion Matrix")

	out, err = run(t, "show", "threat-detector", "--json", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"version": 2`)

	_, err = run(t, "show", "threat-detector", "9", "--models-dir", dir)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListEmpty(t *testing.T) {
	out, err := run(t, "list", "--models-dir", filepath.Join(t.TempDir(), "empty"))
	require.NoError(t, err)
	assert.Contains(t, out, "No models stored")
}

func TestActivateRollbackPrune(t *testing.T) {
	dir := seedStore(t, 1, 2, 3, 4)

	out, err := run(t, "rollback", "threat-detector", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "rolled back to v3")

	out, err = run(t, "prune", "threat-detector", "--keep", "1", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 2 version(s)")

	out, err = run(t, "activate", "threat-detector", "4", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "now serves v4")

	_, err = run(t, "activate", "threat-detector", "x", "--models-dir", dir)
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	dir := seedStore(t, 1)
	t.Setenv("BACKUP_S3_BUCKET", "")

	out, err := run(t, "backup", "--models-dir", dir, "--s3-bucket", "")
	require.NoError(t, err)
	assert.Contains(t, out, dir+"-backup-")
}
