package models

import "time"

// TrainingJob is a recurring retraining job for one model
type TrainingJob struct {
	ID         string     `json:"id"`
	ModelID    string     `json:"model_id"`
	Schedule   string     `json:"schedule"`
	Active     bool       `json:"active"`
	Status     JobStatus  `json:"status"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	LastResult *JobResult `json:"last_result,omitempty"`
	RetryCount int        `json:"retry_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// JobStatus represents the current status of a training job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobResult is the outcome of the most recent run.
// Version refers to a SavedModel through the model store, it is not an owning reference.
type JobResult struct {
	Success      bool          `json:"success"`
	Version      int           `json:"version,omitempty"`
	Error        string        `json:"error,omitempty"`
	TrainingTime time.Duration `json:"training_time"`
}

// TrainingOutcome is what a trainer reports for a successful run
type TrainingOutcome struct {
	Version      int
	TrainingTime time.Duration
}

// SchedulerStats summarizes the scheduler's jobs
type SchedulerStats struct {
	TotalJobs     int `json:"total_jobs"`
	ActiveJobs    int `json:"active_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
}

// Clone returns a deep copy safe to hand out of the scheduler
func (j *TrainingJob) Clone() *TrainingJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.LastRun != nil {
		t := *j.LastRun
		c.LastRun = &t
	}
	if j.NextRun != nil {
		t := *j.NextRun
		c.NextRun = &t
	}
	if j.LastResult != nil {
		r := *j.LastResult
		c.LastResult = &r
	}
	return &c
}

// JobDefinition declares a training job to register at startup
type JobDefinition struct {
	ID       string `yaml:"id" json:"id"`
	ModelID  string `yaml:"model_id" json:"model_id"`
	Schedule string `yaml:"schedule" json:"schedule"`
	Active   bool   `yaml:"active" json:"active"`
}
