package models

import "time"

// FeedbackLabel is a human-reviewed ground-truth label for a prior prediction
type FeedbackLabel struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"request_id"`
	TenantID       string    `json:"tenant_id"`
	ReviewerID     string    `json:"reviewer_id"`
	ActualLabel    int       `json:"actual_label"`
	PredictedLabel int       `json:"predicted_label"`
	FalsePositive  bool      `json:"false_positive"`
	FalseNegative  bool      `json:"false_negative"`
	Confidence     float64   `json:"confidence"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DeriveFlags recomputes FalsePositive and FalseNegative from the labels
func (l *FeedbackLabel) DeriveFlags() {
	l.FalsePositive = l.ActualLabel == 0 && l.PredictedLabel == 1
	l.FalseNegative = l.ActualLabel == 1 && l.PredictedLabel == 0
}

// FeedbackSubmission is a reviewer's new label
type FeedbackSubmission struct {
	RequestID      string   `json:"request_id"`
	TenantID       string   `json:"tenant_id"`
	ReviewerID     string   `json:"reviewer_id"`
	ActualLabel    int      `json:"actual_label"`
	PredictedLabel int      `json:"predicted_label"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

// FeedbackUpdate carries the fields to merge over an existing label; nil means unchanged
type FeedbackUpdate struct {
	RequestID      *string  `json:"request_id,omitempty"`
	TenantID       *string  `json:"tenant_id,omitempty"`
	ReviewerID     *string  `json:"reviewer_id,omitempty"`
	ActualLabel    *int     `json:"actual_label,omitempty"`
	PredictedLabel *int     `json:"predicted_label,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

// FeedbackFilter narrows a label listing; zero values match everything
type FeedbackFilter struct {
	RequestID     string
	TenantID      string
	FalsePositive bool
	FalseNegative bool
}

// FeedbackStatistics summarizes the label ledger
type FeedbackStatistics struct {
	TotalLabeled   int              `json:"total_labeled"`
	FalsePositives int              `json:"false_positives"`
	FalseNegatives int              `json:"false_negatives"`
	AgreementRate  float64          `json:"agreement_rate"`
	RecentLabels   []*FeedbackLabel `json:"recent_labels"`
}

// FeedbackPerformance measures the served model against reviewer labels
type FeedbackPerformance struct {
	TotalFeedback      int     `json:"total_feedback"`
	AccuracyOnFeedback float64 `json:"accuracy_on_feedback"`
	FalsePositiveRate  float64 `json:"false_positive_rate"`
	FalseNegativeRate  float64 `json:"false_negative_rate"`
}
