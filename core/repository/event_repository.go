package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"model-lifecycle/core/models"
)

// EventRepository handles database operations for training job events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// RecordEvent appends one job event
func (r *EventRepository) RecordEvent(ctx context.Context, event *models.JobEvent) error {
	query := `
		INSERT INTO training_job_events (id, job_id, at, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var fromStatus sql.NullString
	if event.FromStatus != nil {
		fromStatus = sql.NullString{String: string(*event.FromStatus), Valid: true}
	}
	var meta sql.NullString
	if len(event.MetaJSON) > 0 {
		b, err := json.Marshal(event.MetaJSON)
		if err != nil {
			return fmt.Errorf("encode event meta: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.JobID,
		event.At,
		fromStatus,
		string(event.ToStatus),
		event.Reason,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert event for job %s: %w: %w", event.JobID, models.ErrIO, err)
	}
	return nil
}

// GetJobEvents retrieves the most recent events for a job, newest first
func (r *EventRepository) GetJobEvents(ctx context.Context, jobID string, limit int) ([]models.JobEvent, error) {
	query := `
		SELECT id, job_id, at, from_status, to_status, reason, meta_json
		FROM training_job_events
		WHERE job_id = $1
		ORDER BY at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for job %s: %w: %w", jobID, models.ErrIO, err)
	}
	defer rows.Close()

	var events []models.JobEvent
	for rows.Next() {
		var event models.JobEvent
		var fromStatus sql.NullString
		var toStatus string
		var meta []byte

		err := rows.Scan(
			&event.ID,
			&event.JobID,
			&event.At,
			&fromStatus,
			&toStatus,
			&event.Reason,
			&meta,
		)
		if err != nil {
			continue
		}

		event.ToStatus = models.JobStatus(toStatus)
		if fromStatus.Valid {
			status := models.JobStatus(fromStatus.String)
			event.FromStatus = &status
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &event.MetaJSON)
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
