package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"model-lifecycle/core/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeedbackQuery(t *testing.T) {
	query, args := buildFeedbackQuery(models.FeedbackFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY created_at, seq")
	assert.Empty(t, args)

	query, args = buildFeedbackQuery(models.FeedbackFilter{TenantID: "t1", FalseNegative: true})
	assert.Contains(t, query, "WHERE tenant_id = $1 AND false_negative")
	assert.Equal(t, []interface{}{"t1"}, args)

	query, args = buildFeedbackQuery(models.FeedbackFilter{RequestID: "r1", TenantID: "t1", FalsePositive: true})
	assert.Contains(t, query, "request_id = $1 AND tenant_id = $2 AND false_positive")
	assert.Equal(t, []interface{}{"r1", "t1"}, args)
}

// testDB connects to MODEL_LIFECYCLE_TEST_DATABASE_URL or skips
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("MODEL_LIFECYCLE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MODEL_LIFECYCLE_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func TestFeedbackRepositoryPostgres(t *testing.T) {
	db := testDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	tenant := "tenant-" + uuid.New().String()
	now := time.Now().UTC().Truncate(time.Microsecond)
	label := &models.FeedbackLabel{
		ID:             uuid.New().String(),
		RequestID:      "req-1",
		TenantID:       tenant,
		ReviewerID:     "alice",
		ActualLabel:    0,
		PredictedLabel: 1,
		Confidence:     0.8,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	label.DeriveFlags()
	require.NoError(t, repo.Create(ctx, label))
	assert.ErrorIs(t, repo.Create(ctx, label), models.ErrInvalidInput)

	got, err := repo.Get(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, got.FalsePositive)
	assert.Equal(t, label.RequestID, got.RequestID)
	assert.True(t, label.CreatedAt.Equal(got.CreatedAt))

	got.ActualLabel = 1
	got.DeriveFlags()
	got.UpdatedAt = now.Add(time.Second)
	require.NoError(t, repo.Update(ctx, got))

	listed, err := repo.List(ctx, models.FeedbackFilter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].FalsePositive)

	ok, err := repo.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Get(ctx, label.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, got), models.ErrNotFound)
}

func TestEventRepositoryPostgres(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	jobID := "job-" + uuid.New().String()
	running := models.JobStatusRunning
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.RecordEvent(ctx, &models.JobEvent{
		ID: uuid.New().String(), JobID: jobID, At: base, ToStatus: models.JobStatusPending, Reason: models.ReasonJobCreated,
	}))
	require.NoError(t, repo.RecordEvent(ctx, &models.JobEvent{
		ID: uuid.New().String(), JobID: jobID, At: base.Add(time.Second), FromStatus: &running,
		ToStatus: models.JobStatusCompleted, Reason: models.ReasonRunSucceeded,
		MetaJSON: map[string]interface{}{"version": 3},
	}))

	events, err := repo.GetJobEvents(ctx, jobID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.ReasonRunSucceeded, events[0].Reason)
	require.NotNil(t, events[0].FromStatus)
	assert.Equal(t, models.JobStatusRunning, *events[0].FromStatus)
	assert.Equal(t, float64(3), events[0].MetaJSON["version"])
	assert.Nil(t, events[1].FromStatus)
}
