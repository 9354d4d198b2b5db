package models

import "time"

// JobEvent represents a state transition event for a training job
type JobEvent struct {
	ID         string                 `json:"id"`
	JobID      string                 `json:"job_id"`
	At         time.Time              `json:"at"`
	FromStatus *JobStatus             `json:"from_status,omitempty"`
	ToStatus   JobStatus              `json:"to_status"`
	Reason     string                 `json:"reason"`
	MetaJSON   map[string]interface{} `json:"meta,omitempty"`
}

// Event reasons
const (
	ReasonJobCreated      = "job_created"
	ReasonRunStarted      = "run_started"
	ReasonRunSucceeded    = "run_succeeded"
	ReasonRetryScheduled  = "retry_scheduled"
	ReasonRetriesExceeded = "retries_exhausted"
	ReasonJobEnabled      = "job_enabled"
	ReasonJobDisabled     = "job_disabled"
	ReasonScheduleUpdated = "schedule_updated"
)
