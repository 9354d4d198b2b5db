package feedback

import (
	"context"

	"model-lifecycle/core/models"
)

// Repository persists feedback labels.
// Get and Update return models.ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, label *models.FeedbackLabel) error
	Get(ctx context.Context, id string) (*models.FeedbackLabel, error)
	Update(ctx context.Context, label *models.FeedbackLabel) error
	Delete(ctx context.Context, id string) (bool, error)
	// List returns matching labels ordered by creation time, oldest first
	List(ctx context.Context, filter models.FeedbackFilter) ([]*models.FeedbackLabel, error)
}
