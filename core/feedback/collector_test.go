package feedback

import (
	"context"
	"testing"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c := NewCollector(NewMemoryRepository(), logger.FromZap(zaptest.NewLogger(t)))
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return c
}

func submit(t *testing.T, c *Collector, tenant string, actual, predicted int) *models.FeedbackLabel {
	t.Helper()
	label, err := c.Submit(context.Background(), models.FeedbackSubmission{
		RequestID:      "req-" + tenant,
		TenantID:       tenant,
		ReviewerID:     "analyst",
		ActualLabel:    actual,
		PredictedLabel: predicted,
	})
	require.NoError(t, err)
	return label
}

func TestSubmitDerivesFlags(t *testing.T) {
	tests := []struct {
		name          string
		actual        int
		predicted     int
		falsePositive bool
		falseNegative bool
	}{
		{name: "benign flagged as threat", actual: 0, predicted: 1, falsePositive: true},
		{name: "threat missed", actual: 1, predicted: 0, falseNegative: true},
		{name: "threat caught", actual: 1, predicted: 1},
		{name: "benign passed", actual: 0, predicted: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollector(t)
			label := submit(t, c, "acme", tt.actual, tt.predicted)

			assert.Equal(t, tt.falsePositive, label.FalsePositive)
			assert.Equal(t, tt.falseNegative, label.FalseNegative)
			assert.NotEmpty(t, label.ID)
			assert.Equal(t, label.CreatedAt, label.UpdatedAt)
			assert.Equal(t, 1.0, label.Confidence)
		})
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()

	_, err := c.Submit(ctx, models.FeedbackSubmission{ActualLabel: 2, PredictedLabel: 0})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = c.Submit(ctx, models.FeedbackSubmission{ActualLabel: 0, PredictedLabel: -1})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	bad := 1.5
	_, err = c.Submit(ctx, models.FeedbackSubmission{ActualLabel: 0, PredictedLabel: 0, Confidence: &bad})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGetAndDelete(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()
	label := submit(t, c, "acme", 1, 1)

	got, err := c.Get(ctx, label.ID)
	require.NoError(t, err)
	assert.Equal(t, label, got)

	deleted, err := c.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = c.Get(ctx, label.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	deleted, err = c.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateRecomputesFlags(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()
	label := submit(t, c, "acme", 1, 1)

	zero := 0
	notes := "replayed traffic"
	updated, err := c.Update(ctx, label.ID, models.FeedbackUpdate{ActualLabel: &zero, Notes: &notes})
	require.NoError(t, err)

	assert.True(t, updated.FalsePositive)
	assert.False(t, updated.FalseNegative)
	assert.Equal(t, "replayed traffic", updated.Notes)
	assert.Equal(t, label.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(label.UpdatedAt))

	stored, err := c.Get(ctx, label.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	_, err = c.Update(ctx, "missing", models.FeedbackUpdate{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	three := 3
	_, err = c.Update(ctx, label.ID, models.FeedbackUpdate{PredictedLabel: &three})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestListings(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()

	first := submit(t, c, "acme", 0, 1)
	second := submit(t, c, "acme", 1, 0)
	submit(t, c, "globex", 1, 1)

	byTenant, err := c.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, byTenant, 2)
	assert.Equal(t, second.ID, byTenant[0].ID)
	assert.Equal(t, first.ID, byTenant[1].ID)

	byRequest, err := c.ListByRequest(ctx, "req-globex")
	require.NoError(t, err)
	assert.Len(t, byRequest, 1)

	_, err = c.ListByTenant(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = c.ListByRequest(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	fps, err := c.ListFalsePositives(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, first.ID, fps[0].ID)

	fns, err := c.ListFalseNegatives(ctx)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, second.ID, fns[0].ID)
}

func TestStatistics(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()

	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalLabeled)
	assert.Equal(t, 0.0, stats.AgreementRate)
	assert.Empty(t, stats.RecentLabels)

	for i := 0; i < 12; i++ {
		submit(t, c, "acme", 1, 1)
	}
	submit(t, c, "acme", 0, 1)
	last := submit(t, c, "acme", 1, 0)

	stats, err = c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, stats.TotalLabeled)
	assert.Equal(t, 1, stats.FalsePositives)
	assert.Equal(t, 1, stats.FalseNegatives)
	assert.InDelta(t, 12.0/14.0, stats.AgreementRate, 1e-9)
	require.Len(t, stats.RecentLabels, 10)
	assert.Equal(t, last.ID, stats.RecentLabels[0].ID)
}

func TestPerformanceMetrics(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()

	perf, err := c.PerformanceMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackPerformance{}, *perf)

	submit(t, c, "acme", 0, 1) // FP
	submit(t, c, "acme", 0, 0)
	submit(t, c, "acme", 0, 0)
	submit(t, c, "acme", 0, 0)
	submit(t, c, "acme", 1, 1)
	submit(t, c, "acme", 1, 0) // FN

	perf, err = c.PerformanceMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, perf.TotalFeedback)
	assert.InDelta(t, 4.0/6.0, perf.AccuracyOnFeedback, 1e-9)
	assert.InDelta(t, 0.25, perf.FalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.5, perf.FalseNegativeRate, 1e-9)
}

type countingObserver struct{ n int }

func (o *countingObserver) ObserveFeedback(*models.FeedbackLabel) { o.n++ }

func TestObserverNotified(t *testing.T) {
	c := newTestCollector(t)
	obs := &countingObserver{}
	c.SetObserver(obs)

	submit(t, c, "acme", 1, 1)
	_, err := c.Submit(context.Background(), models.FeedbackSubmission{ActualLabel: 5})
	require.Error(t, err)

	assert.Equal(t, 1, obs.n)
}
