package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"

	"github.com/google/uuid"
)

// Trainer runs one training attempt for a model. A nil error means a new
// version was produced.
type Trainer interface {
	Train(ctx context.Context, modelID string) (*models.TrainingOutcome, error)
}

// Rollbacker falls back from the newest version of a model after training
// keeps failing. It returns the version active afterwards.
type Rollbacker interface {
	DemoteLatest(modelID string) (int, error)
}

// EventSink persists job events outside the process
type EventSink interface {
	RecordEvent(ctx context.Context, event *models.JobEvent) error
}

// Observer receives run outcomes, e.g. for metrics
type Observer interface {
	ObserveRun(jobID, modelID string, result *models.JobResult)
	ObserveRetry(jobID string)
	ObserveRollback(modelID string, err error)
}

// Config tunes retry and dispatch behavior
type Config struct {
	MaxRetries   int
	RetryDelay   time.Duration
	TickInterval time.Duration
	EventHistory int
}

// DefaultConfig returns 3 attempts 5 minutes apart
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryDelay:   5 * time.Minute,
		TickInterval: time.Second,
		EventHistory: 100,
	}
}

// DefaultJobs are registered when no jobs file is configured
func DefaultJobs(modelID string) []models.JobDefinition {
	return []models.JobDefinition{
		{ID: "daily-retrain", ModelID: modelID, Schedule: "0 2 * * *", Active: true},
		{ID: "weekly-retrain", ModelID: modelID, Schedule: "0 0 * * 0", Active: true},
	}
}

type runOrigin string

const (
	originScheduled runOrigin = "scheduled"
	originRetry     runOrigin = "retry"
	originManual    runOrigin = "manual"
)

type jobEntry struct {
	job     *models.TrainingJob
	cadence Cadence
	// held for the whole run; at most one run per job
	runMu sync.Mutex
	// set when retries ran out; a later successful run re-arms the job
	exhausted bool
}

// Scheduler owns training jobs: cadence timers, on-demand runs, bounded
// retries and rollback after repeated failure
type Scheduler struct {
	cfg        Config
	trainer    Trainer
	rollbacker Rollbacker
	log        *logger.Logger
	queue      *TaskQueue
	now        func() time.Time

	observer Observer
	sink     EventSink

	mu      sync.RWMutex
	jobs    map[string]*jobEntry
	history map[string][]models.JobEvent
	baseCtx context.Context

	inflight sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler with no jobs
func NewScheduler(cfg Config, trainer Trainer, rollbacker Rollbacker, log *logger.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.EventHistory <= 0 {
		cfg.EventHistory = def.EventHistory
	}
	return &Scheduler{
		cfg:        cfg,
		trainer:    trainer,
		rollbacker: rollbacker,
		log:        log.With("component", "scheduler"),
		queue:      NewTaskQueue(),
		now:        time.Now,
		jobs:       make(map[string]*jobEntry),
		history:    make(map[string][]models.JobEvent),
		baseCtx:    context.Background(),
		stopChan:   make(chan struct{}),
	}
}

// SetObserver registers a run observer
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// SetEventSink persists job events in addition to the in-memory history
func (s *Scheduler) SetEventSink(sink EventSink) {
	s.sink = sink
}

// Register creates every job in defs and returns how many were created
func (s *Scheduler) Register(defs []models.JobDefinition) int {
	n := 0
	for _, def := range defs {
		if s.CreateJob(def.ID, def.ModelID, def.Schedule, def.Active) {
			n++
		} else {
			s.log.Warn("Skipped job definition", "job_id", def.ID, "model_id", def.ModelID)
		}
	}
	return n
}

// Start dispatches due tasks until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info("Scheduler started", "jobs", len(s.ListJobs()), "tick", s.cfg.TickInterval.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}

// Stop ends the dispatch loop and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.inflight.Wait()
}

// Wait blocks until all asynchronously started runs have finished
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// Tick starts every task due at now, each on its own goroutine, and returns
// how many runs were started
func (s *Scheduler) Tick(now time.Time) int {
	started := 0
	for _, task := range s.queue.PopDue(now) {
		s.mu.RLock()
		entry, ok := s.jobs[task.JobID]
		active := ok && entry.job.Active
		ctx := s.baseCtx
		s.mu.RUnlock()

		if !ok || (task.Kind == TaskScheduled && !active) {
			continue
		}
		origin := originScheduled
		if task.Kind == TaskRetry {
			origin = originRetry
		}

		s.inflight.Add(1)
		go func(entry *jobEntry, origin runOrigin) {
			defer s.inflight.Done()
			s.run(ctx, entry, origin)
		}(entry, origin)
		started++
	}
	return started
}

// PendingTasks returns the queued scheduled runs and retries
func (s *Scheduler) PendingTasks() []Task {
	return s.queue.Pending()
}

// CreateJob registers a job. It returns false if the id is taken or the job is incomplete.
func (s *Scheduler) CreateJob(id, modelID, schedule string, active bool) bool {
	if id == "" || modelID == "" {
		return false
	}

	s.mu.Lock()
	if _, exists := s.jobs[id]; exists {
		s.mu.Unlock()
		return false
	}

	cadence := ParseCadence(schedule)
	now := s.now()
	next := cadence.Next(now)
	job := &models.TrainingJob{
		ID:        id,
		ModelID:   modelID,
		Schedule:  schedule,
		Active:    active,
		Status:    models.JobStatusPending,
		NextRun:   &next,
		CreatedAt: now,
	}
	s.jobs[id] = &jobEntry{job: job, cadence: cadence}
	if active {
		s.queue.Schedule(id, TaskScheduled, next)
	}
	ev := s.recordLocked(id, nil, job.Status, models.ReasonJobCreated, map[string]interface{}{
		"schedule": schedule,
		"cadence":  cadence.String(),
		"active":   active,
	})
	s.mu.Unlock()

	s.persist(context.Background(), ev)
	if _, ok := cadence.(Fallback); ok {
		s.log.Warn("Unsupported schedule, running every 24h", "job_id", id, "schedule", schedule)
	}
	s.log.Info("Training job created", "job_id", id, "model_id", modelID, "cadence", cadence.String(), "active", active, "next_run", next)
	return true
}

// EnableJob arms the job's timer and clears its retry counter
func (s *Scheduler) EnableJob(id string) bool {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	job := entry.job
	job.Active = true
	job.RetryCount = 0
	entry.exhausted = false
	next := entry.cadence.Next(s.now())
	job.NextRun = &next
	s.queue.Schedule(id, TaskScheduled, next)
	ev := s.recordLocked(id, &job.Status, job.Status, models.ReasonJobEnabled, nil)
	s.mu.Unlock()

	s.persist(context.Background(), ev)
	s.log.Info("Training job enabled", "job_id", id, "next_run", next)
	return true
}

// DisableJob disarms the job's timer. An in-flight run is not interrupted.
func (s *Scheduler) DisableJob(id string) bool {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	entry.job.Active = false
	entry.exhausted = false
	s.queue.Cancel(id, TaskScheduled)
	ev := s.recordLocked(id, &entry.job.Status, entry.job.Status, models.ReasonJobDisabled, nil)
	s.mu.Unlock()

	s.persist(context.Background(), ev)
	s.log.Info("Training job disabled", "job_id", id)
	return true
}

// UpdateSchedule replaces the cadence and rearms the timer if the job is active
func (s *Scheduler) UpdateSchedule(id, schedule string) bool {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	job := entry.job
	entry.cadence = ParseCadence(schedule)
	job.Schedule = schedule
	next := entry.cadence.Next(s.now())
	job.NextRun = &next
	if job.Active {
		s.queue.Schedule(id, TaskScheduled, next)
	}
	ev := s.recordLocked(id, &job.Status, job.Status, models.ReasonScheduleUpdated, map[string]interface{}{
		"schedule": schedule,
		"cadence":  entry.cadence.String(),
	})
	s.mu.Unlock()

	s.persist(context.Background(), ev)
	s.log.Info("Training job rescheduled", "job_id", id, "cadence", entry.cadence.String(), "next_run", next)
	return true
}

// DeleteJob disarms and removes a job, cancelling pending retries
func (s *Scheduler) DeleteJob(id string) bool {
	s.mu.Lock()
	if _, ok := s.jobs[id]; !ok {
		s.mu.Unlock()
		return false
	}
	s.queue.CancelJob(id)
	delete(s.jobs, id)
	delete(s.history, id)
	s.mu.Unlock()

	s.log.Info("Training job deleted", "job_id", id)
	return true
}

// TriggerNow runs the job in the calling goroutine and returns the run result.
// It waits for an in-flight run of the same job to finish first.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*models.JobResult, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, entry, originManual)
}

// Trigger starts a manual run in the background
func (s *Scheduler) Trigger(id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(ctx, entry, originManual)
	}()
	return nil
}

// GetJobStatus returns a snapshot of one job
func (s *Scheduler) GetJobStatus(id string) (*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("training job %s: %w", id, models.ErrNotFound)
	}
	return entry.job.Clone(), nil
}

// ListJobs returns snapshots of every job ordered by id
func (s *Scheduler) ListJobs() []*models.TrainingJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TrainingJob, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, entry.job.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// JobsForModel returns the ids of jobs training the given model
func (s *Scheduler) JobsForModel(modelID string) []string {
	var ids []string
	for _, job := range s.ListJobs() {
		if job.ModelID == modelID {
			ids = append(ids, job.ID)
		}
	}
	return ids
}

// GetStats counts jobs by state
func (s *Scheduler) GetStats() models.SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.SchedulerStats{TotalJobs: len(s.jobs)}
	for _, entry := range s.jobs {
		if entry.job.Active {
			stats.ActiveJobs++
		}
		switch entry.job.Status {
		case models.JobStatusCompleted:
			stats.CompletedJobs++
		case models.JobStatusFailed:
			stats.FailedJobs++
		}
	}
	return stats
}

// JobEvents returns the recorded transitions of a job, oldest first
func (s *Scheduler) JobEvents(id string) ([]models.JobEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.jobs[id]; !ok {
		return nil, fmt.Errorf("training job %s: %w", id, models.ErrNotFound)
	}
	events := make([]models.JobEvent, len(s.history[id]))
	copy(events, s.history[id])
	return events, nil
}

func (s *Scheduler) entry(id string) (*jobEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("training job %s: %w", id, models.ErrNotFound)
	}
	return entry, nil
}

// run executes one attempt and applies the retry and rollback policy.
// Cancelling ctx never interrupts the attempt.
func (s *Scheduler) run(ctx context.Context, entry *jobEntry, origin runOrigin) (*models.JobResult, error) {
	ctx = context.WithoutCancel(ctx)

	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	s.mu.Lock()
	job := entry.job
	if s.jobs[job.ID] != entry {
		s.mu.Unlock()
		return nil, fmt.Errorf("training job %s: %w", job.ID, models.ErrNotFound)
	}
	if origin != originRetry {
		// a fresh run supersedes any pending retry
		job.RetryCount = 0
		s.queue.Cancel(job.ID, TaskRetry)
	}
	jobID, modelID := job.ID, job.ModelID
	from := job.Status
	job.Status = models.JobStatusRunning
	events := []models.JobEvent{s.recordLocked(jobID, &from, models.JobStatusRunning, models.ReasonRunStarted, map[string]interface{}{
		"trigger": string(origin),
		"attempt": job.RetryCount + 1,
	})}
	s.mu.Unlock()

	log := s.log.With("job_id", jobID, "model_id", modelID, "trigger", string(origin))
	log.Info("Training run started")

	start := s.now()
	outcome, err := s.train(ctx, modelID)
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	finished := s.now()
	result := &models.JobResult{TrainingTime: elapsed}
	exhausted := false
	rearmed := false
	retryAt := time.Time{}

	if err == nil {
		result.Success = true
		result.Version = outcome.Version
		if outcome.TrainingTime > 0 {
			result.TrainingTime = outcome.TrainingTime
		}
		job.Status = models.JobStatusCompleted
		job.RetryCount = 0
		if entry.exhausted {
			entry.exhausted = false
			job.Active = true
			rearmed = true
		}
		events = append(events, s.recordLocked(jobID, ptr(models.JobStatusRunning), job.Status, models.ReasonRunSucceeded, map[string]interface{}{
			"version": outcome.Version,
			"rearmed": rearmed,
		}))
	} else {
		result.Error = err.Error()
		job.Status = models.JobStatusFailed
		job.RetryCount++
		if job.RetryCount < s.cfg.MaxRetries {
			retryAt = finished.Add(s.cfg.RetryDelay)
			if s.jobs[jobID] == entry {
				s.queue.Schedule(jobID, TaskRetry, retryAt)
			}
			events = append(events, s.recordLocked(jobID, ptr(models.JobStatusRunning), job.Status, models.ReasonRetryScheduled, map[string]interface{}{
				"error":    err.Error(),
				"attempt":  job.RetryCount,
				"retry_at": retryAt,
			}))
		} else {
			exhausted = true
			entry.exhausted = true
			job.Active = false
			s.queue.Cancel(jobID, TaskScheduled)
			events = append(events, s.recordLocked(jobID, ptr(models.JobStatusRunning), job.Status, models.ReasonRetriesExceeded, map[string]interface{}{
				"error":    err.Error(),
				"attempts": job.RetryCount,
			}))
		}
	}

	job.LastResult = result
	job.LastRun = &finished
	next := entry.cadence.Next(finished)
	job.NextRun = &next
	if job.Active && s.jobs[jobID] == entry {
		s.queue.Schedule(jobID, TaskScheduled, next)
	}
	out := *result
	attempts := job.RetryCount
	s.mu.Unlock()

	s.persist(ctx, events...)
	if s.observer != nil {
		s.observer.ObserveRun(jobID, modelID, &out)
	}

	switch {
	case err == nil:
		log.Info("Training run completed", "version", out.Version, "training_time", out.TrainingTime.String(), "next_run", next)
		if rearmed {
			log.Info("Training job re-armed after recovering from exhausted retries")
		}
	case !exhausted:
		log.Warn("Training run failed, retry scheduled", "error", err, "attempt", attempts, "retry_at", retryAt)
		if s.observer != nil {
			s.observer.ObserveRetry(jobID)
		}
	default:
		log.Error("Training run failed, retries exhausted", "error", err, "attempts", attempts)
		s.rollback(modelID, log)
	}
	return &out, nil
}

// train calls the trainer and turns panics and empty outcomes into failures
func (s *Scheduler) train(ctx context.Context, modelID string) (outcome *models.TrainingOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("trainer panic for model %s: %v: %w", modelID, r, models.ErrTrainingFailure)
		}
	}()

	outcome, err = s.trainer.Train(ctx, modelID)
	if err != nil {
		if !errors.Is(err, models.ErrTrainingFailure) {
			err = fmt.Errorf("%w: %w", models.ErrTrainingFailure, err)
		}
		return nil, err
	}
	if outcome == nil {
		return nil, fmt.Errorf("trainer returned no outcome for model %s: %w", modelID, models.ErrTrainingFailure)
	}
	return outcome, nil
}

// rollback is best effort; failures are logged only
func (s *Scheduler) rollback(modelID string, log *logger.Logger) {
	if s.rollbacker == nil {
		return
	}
	version, err := s.rollbacker.DemoteLatest(modelID)
	if s.observer != nil {
		s.observer.ObserveRollback(modelID, err)
	}
	if err != nil {
		log.Warn("Rollback not performed", "error", err)
		return
	}
	log.Info("Active model version after rollback", "version", version)
}

func (s *Scheduler) recordLocked(jobID string, from *models.JobStatus, to models.JobStatus, reason string, meta map[string]interface{}) models.JobEvent {
	ev := models.JobEvent{
		ID:       uuid.New().String(),
		JobID:    jobID,
		At:       s.now(),
		ToStatus: to,
		Reason:   reason,
		MetaJSON: meta,
	}
	if from != nil {
		f := *from
		ev.FromStatus = &f
	}

	if _, ok := s.jobs[jobID]; !ok {
		return ev
	}
	h := append(s.history[jobID], ev)
	if len(h) > s.cfg.EventHistory {
		h = h[len(h)-s.cfg.EventHistory:]
	}
	s.history[jobID] = h
	return ev
}

func (s *Scheduler) persist(ctx context.Context, events ...models.JobEvent) {
	if s.sink == nil {
		return
	}
	for i := range events {
		if err := s.sink.RecordEvent(ctx, &events[i]); err != nil {
			s.log.Warn("Failed to persist job event", "job_id", events[i].JobID, "reason", events[i].Reason, "error", err)
		}
	}
}

func ptr(s models.JobStatus) *models.JobStatus {
	return &s
}
