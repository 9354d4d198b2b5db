package monitoring

import (
	"context"
	"sync"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
)

// PerformanceSource measures the served model against reviewer labels
type PerformanceSource interface {
	PerformanceMetrics(ctx context.Context) (*models.FeedbackPerformance, error)
}

// JobTrigger starts training jobs on demand
type JobTrigger interface {
	JobsForModel(modelID string) []string
	Trigger(jobID string) error
}

// MonitorConfig controls when the monitor asks for a retrain
type MonitorConfig struct {
	ModelID       string
	Interval      time.Duration
	AccuracyFloor float64
	MinSamples    int
	Cooldown      time.Duration
}

// FeedbackMonitor watches accuracy on reviewer feedback and triggers a
// retrain when it drops below the floor
type FeedbackMonitor struct {
	cfg     MonitorConfig
	source  PerformanceSource
	trigger JobTrigger
	log     *logger.Logger
	now     func() time.Time

	mu            sync.Mutex
	lastTriggered time.Time
}

// NewFeedbackMonitor creates a new feedback monitor
func NewFeedbackMonitor(cfg MonitorConfig, source PerformanceSource, trigger JobTrigger, log *logger.Logger) *FeedbackMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 6 * time.Hour
	}
	return &FeedbackMonitor{
		cfg:     cfg,
		source:  source,
		trigger: trigger,
		log:     log.With("component", "feedback_monitor", "model_id", cfg.ModelID),
		now:     time.Now,
	}
}

// Start runs the check loop until ctx is cancelled
func (fm *FeedbackMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(fm.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fm.Check(ctx)
		}
	}
}

// Check evaluates feedback once and returns the job it triggered, if any
func (fm *FeedbackMonitor) Check(ctx context.Context) (string, bool) {
	perf, err := fm.source.PerformanceMetrics(ctx)
	if err != nil {
		fm.log.Warn("Failed to read feedback performance", "error", err)
		return "", false
	}
	if perf.TotalFeedback < fm.cfg.MinSamples || perf.AccuracyOnFeedback >= fm.cfg.AccuracyFloor {
		return "", false
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	now := fm.now()
	if !fm.lastTriggered.IsZero() && now.Sub(fm.lastTriggered) < fm.cfg.Cooldown {
		fm.log.Debug("Accuracy below floor, retrain cooling down",
			"accuracy", perf.AccuracyOnFeedback,
			"last_triggered", fm.lastTriggered,
		)
		return "", false
	}

	jobs := fm.trigger.JobsForModel(fm.cfg.ModelID)
	if len(jobs) == 0 {
		fm.log.Warn("Accuracy below floor but no training job is registered", "accuracy", perf.AccuracyOnFeedback)
		return "", false
	}
	// one retrain is enough; the first job stands in for the model
	jobID := jobs[0]
	if err := fm.trigger.Trigger(jobID); err != nil {
		fm.log.Error("Failed to trigger retrain", "job_id", jobID, "error", err)
		return "", false
	}
	fm.lastTriggered = now

	fm.log.Warn("Accuracy on feedback below floor, retrain triggered",
		"job_id", jobID,
		"accuracy", perf.AccuracyOnFeedback,
		"floor", fm.cfg.AccuracyFloor,
		"samples", perf.TotalFeedback,
	)
	return jobID, true
}
