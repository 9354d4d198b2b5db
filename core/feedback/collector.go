package feedback

import (
	"context"
	"fmt"
	"math"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"

	"github.com/google/uuid"
)

const recentLabelLimit = 10

// Observer is notified about accepted submissions
type Observer interface {
	ObserveFeedback(label *models.FeedbackLabel)
}

// Collector is the system of record for reviewer ground truth
type Collector struct {
	repo     Repository
	log      *logger.Logger
	observer Observer
	now      func() time.Time
}

// NewCollector creates a collector over the given repository
func NewCollector(repo Repository, log *logger.Logger) *Collector {
	return &Collector{
		repo: repo,
		log:  log.With("component", "feedback"),
		now:  time.Now,
	}
}

// SetObserver registers an observer for new labels
func (c *Collector) SetObserver(o Observer) {
	c.observer = o
}

// Submit records a new label
func (c *Collector) Submit(ctx context.Context, sub models.FeedbackSubmission) (*models.FeedbackLabel, error) {
	if err := validateLabel("actual_label", sub.ActualLabel); err != nil {
		return nil, err
	}
	if err := validateLabel("predicted_label", sub.PredictedLabel); err != nil {
		return nil, err
	}
	confidence := 1.0
	if sub.Confidence != nil {
		if err := validateConfidence(*sub.Confidence); err != nil {
			return nil, err
		}
		confidence = *sub.Confidence
	}

	now := c.now().UTC()
	label := &models.FeedbackLabel{
		ID:             uuid.New().String(),
		RequestID:      sub.RequestID,
		TenantID:       sub.TenantID,
		ReviewerID:     sub.ReviewerID,
		ActualLabel:    sub.ActualLabel,
		PredictedLabel: sub.PredictedLabel,
		Confidence:     confidence,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sub.Notes != nil {
		label.Notes = *sub.Notes
	}
	label.DeriveFlags()

	if err := c.repo.Create(ctx, label); err != nil {
		return nil, fmt.Errorf("failed to store feedback %s: %w", label.ID, err)
	}

	c.log.Info("Feedback recorded",
		"feedback_id", label.ID,
		"request_id", label.RequestID,
		"tenant_id", label.TenantID,
		"false_positive", label.FalsePositive,
		"false_negative", label.FalseNegative,
	)
	if c.observer != nil {
		c.observer.ObserveFeedback(label)
	}
	return label, nil
}

// Get returns a label by id
func (c *Collector) Get(ctx context.Context, id string) (*models.FeedbackLabel, error) {
	return c.repo.Get(ctx, id)
}

// ListByRequest returns all labels for a request
func (c *Collector) ListByRequest(ctx context.Context, requestID string) ([]*models.FeedbackLabel, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required: %w", models.ErrInvalidInput)
	}
	return c.repo.List(ctx, models.FeedbackFilter{RequestID: requestID})
}

// ListByTenant returns a tenant's labels, newest first
func (c *Collector) ListByTenant(ctx context.Context, tenantID string) ([]*models.FeedbackLabel, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required: %w", models.ErrInvalidInput)
	}
	labels, err := c.repo.List(ctx, models.FeedbackFilter{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	reverse(labels)
	return labels, nil
}

// ListFalsePositives returns labels where the model flagged benign traffic
func (c *Collector) ListFalsePositives(ctx context.Context) ([]*models.FeedbackLabel, error) {
	return c.repo.List(ctx, models.FeedbackFilter{FalsePositive: true})
}

// ListFalseNegatives returns labels where the model missed a threat
func (c *Collector) ListFalseNegatives(ctx context.Context) ([]*models.FeedbackLabel, error) {
	return c.repo.List(ctx, models.FeedbackFilter{FalseNegative: true})
}

// All returns every label, oldest first
func (c *Collector) All(ctx context.Context) ([]*models.FeedbackLabel, error) {
	return c.repo.List(ctx, models.FeedbackFilter{})
}

// Update merges the provided fields over an existing label
func (c *Collector) Update(ctx context.Context, id string, upd models.FeedbackUpdate) (*models.FeedbackLabel, error) {
	label, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.ActualLabel != nil {
		if err := validateLabel("actual_label", *upd.ActualLabel); err != nil {
			return nil, err
		}
		label.ActualLabel = *upd.ActualLabel
	}
	if upd.PredictedLabel != nil {
		if err := validateLabel("predicted_label", *upd.PredictedLabel); err != nil {
			return nil, err
		}
		label.PredictedLabel = *upd.PredictedLabel
	}
	if upd.Confidence != nil {
		if err := validateConfidence(*upd.Confidence); err != nil {
			return nil, err
		}
		label.Confidence = *upd.Confidence
	}
	if upd.RequestID != nil {
		label.RequestID = *upd.RequestID
	}
	if upd.TenantID != nil {
		label.TenantID = *upd.TenantID
	}
	if upd.ReviewerID != nil {
		label.ReviewerID = *upd.ReviewerID
	}
	if upd.Notes != nil {
		label.Notes = *upd.Notes
	}
	label.DeriveFlags()
	label.UpdatedAt = c.now().UTC()

	if err := c.repo.Update(ctx, label); err != nil {
		return nil, err
	}
	return label, nil
}

// Delete removes a label; false if it did not exist
func (c *Collector) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := c.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete feedback %s: %w", id, err)
	}
	if deleted {
		c.log.Info("Feedback deleted", "feedback_id", id)
	}
	return deleted, nil
}

// Statistics summarizes the ledger
func (c *Collector) Statistics(ctx context.Context) (*models.FeedbackStatistics, error) {
	labels, err := c.repo.List(ctx, models.FeedbackFilter{})
	if err != nil {
		return nil, err
	}

	stats := &models.FeedbackStatistics{
		TotalLabeled: len(labels),
		RecentLabels: make([]*models.FeedbackLabel, 0, recentLabelLimit),
	}
	agree := 0
	for _, label := range labels {
		if label.FalsePositive {
			stats.FalsePositives++
		}
		if label.FalseNegative {
			stats.FalseNegatives++
		}
		if label.ActualLabel == label.PredictedLabel {
			agree++
		}
	}
	stats.AgreementRate = ratio(agree, len(labels))

	for i := len(labels) - 1; i >= 0 && len(stats.RecentLabels) < recentLabelLimit; i-- {
		stats.RecentLabels = append(stats.RecentLabels, labels[i])
	}
	return stats, nil
}

// PerformanceMetrics measures the served model's predictions against reviewer labels
func (c *Collector) PerformanceMetrics(ctx context.Context) (*models.FeedbackPerformance, error) {
	labels, err := c.repo.List(ctx, models.FeedbackFilter{})
	if err != nil {
		return nil, err
	}

	var correct, negatives, positives, fp, fn int
	for _, label := range labels {
		if label.ActualLabel == label.PredictedLabel {
			correct++
		}
		if label.ActualLabel == 0 {
			negatives++
		} else {
			positives++
		}
		if label.FalsePositive {
			fp++
		}
		if label.FalseNegative {
			fn++
		}
	}

	return &models.FeedbackPerformance{
		TotalFeedback:      len(labels),
		AccuracyOnFeedback: ratio(correct, len(labels)),
		FalsePositiveRate:  ratio(fp, negatives),
		FalseNegativeRate:  ratio(fn, positives),
	}, nil
}

func validateLabel(field string, v int) error {
	if v != 0 && v != 1 {
		return fmt.Errorf("%s must be 0 or 1, got %d: %w", field, v, models.ErrInvalidInput)
	}
	return nil
}

func validateConfidence(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v: %w", v, models.ErrInvalidInput)
	}
	return nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func reverse(labels []*models.FeedbackLabel) {
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
}
