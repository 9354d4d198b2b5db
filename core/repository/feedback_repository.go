package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"model-lifecycle/core/models"

	"github.com/lib/pq"
)

// FeedbackRepository stores feedback labels in Postgres
type FeedbackRepository struct {
	db *DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const feedbackColumns = `id, request_id, tenant_id, reviewer_id, actual_label, predicted_label,
	false_positive, false_negative, confidence, notes, created_at, updated_at`

// Create inserts a new label
func (r *FeedbackRepository) Create(ctx context.Context, label *models.FeedbackLabel) error {
	query := `
		INSERT INTO feedback_labels (` + feedbackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		label.ID,
		label.RequestID,
		label.TenantID,
		label.ReviewerID,
		label.ActualLabel,
		label.PredictedLabel,
		label.FalsePositive,
		label.FalseNegative,
		label.Confidence,
		label.Notes,
		label.CreatedAt,
		label.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("feedback %s already exists: %w", label.ID, models.ErrInvalidInput)
		}
		return fmt.Errorf("insert feedback %s: %w: %w", label.ID, models.ErrIO, err)
	}
	return nil
}

// Get retrieves a label by id
func (r *FeedbackRepository) Get(ctx context.Context, id string) (*models.FeedbackLabel, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback_labels WHERE id = $1`

	label, err := scanLabel(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("feedback %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback %s: %w: %w", id, models.ErrIO, err)
	}
	return label, nil
}

// Update overwrites the mutable fields of a label
func (r *FeedbackRepository) Update(ctx context.Context, label *models.FeedbackLabel) error {
	query := `
		UPDATE feedback_labels
		SET request_id = $2, tenant_id = $3, reviewer_id = $4, actual_label = $5,
			predicted_label = $6, false_positive = $7, false_negative = $8,
			confidence = $9, notes = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		label.ID,
		label.RequestID,
		label.TenantID,
		label.ReviewerID,
		label.ActualLabel,
		label.PredictedLabel,
		label.FalsePositive,
		label.FalseNegative,
		label.Confidence,
		label.Notes,
		label.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update feedback %s: %w: %w", label.ID, models.ErrIO, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("feedback %s: %w", label.ID, models.ErrNotFound)
	}
	return nil
}

// Delete removes a label and reports whether it existed
func (r *FeedbackRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback_labels WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete feedback %s: %w: %w", id, models.ErrIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete feedback %s: %w: %w", id, models.ErrIO, err)
	}
	return n > 0, nil
}

// List retrieves matching labels, oldest first
func (r *FeedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]*models.FeedbackLabel, error) {
	query, args := buildFeedbackQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w: %w", models.ErrIO, err)
	}
	defer rows.Close()

	labels := make([]*models.FeedbackLabel, 0)
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w: %w", models.ErrIO, err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list feedback: %w: %w", models.ErrIO, err)
	}
	return labels, nil
}

func buildFeedbackQuery(filter models.FeedbackFilter) (string, []interface{}) {
	var where []string
	var args []interface{}

	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		where = append(where, fmt.Sprintf("request_id = $%d", len(args)))
	}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.FalsePositive {
		where = append(where, "false_positive")
	}
	if filter.FalseNegative {
		where = append(where, "false_negative")
	}

	query := `SELECT ` + feedbackColumns + ` FROM feedback_labels`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, seq`
	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLabel(row rowScanner) (*models.FeedbackLabel, error) {
	var label models.FeedbackLabel
	err := row.Scan(
		&label.ID,
		&label.RequestID,
		&label.TenantID,
		&label.ReviewerID,
		&label.ActualLabel,
		&label.PredictedLabel,
		&label.FalsePositive,
		&label.FalseNegative,
		&label.Confidence,
		&label.Notes,
		&label.CreatedAt,
		&label.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &label, nil
}
