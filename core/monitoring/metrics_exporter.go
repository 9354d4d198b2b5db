package monitoring

import (
	"net/http"

	"model-lifecycle/core/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource reports the scheduler's job counts
type StatsSource interface {
	GetStats() models.SchedulerStats
}

// MetricsExporter exports lifecycle metrics for Prometheus
type MetricsExporter struct {
	registry *prometheus.Registry

	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	retries          *prometheus.CounterVec
	rollbacks        *prometheus.CounterVec
	feedback         *prometheus.CounterVec
	lastVersion      *prometheus.GaugeVec
}

// NewMetricsExporter creates an exporter with its own registry. Job gauges are
// read from stats on every scrape when stats is not nil.
func NewMetricsExporter(stats StatsSource) *MetricsExporter {
	me := &MetricsExporter{
		registry: prometheus.NewRegistry(),

		trainingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_training_runs_total",
				Help: "Training runs by job and outcome",
			},
			[]string{"job_id", "model_id", "outcome"},
		),
		trainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "model_training_duration_seconds",
				Help:    "Duration of training runs",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_training_retries_total",
				Help: "Retries scheduled after a failed training run",
			},
			[]string{"job_id"},
		),
		rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_rollbacks_total",
				Help: "Rollbacks attempted after retries were exhausted",
			},
			[]string{"model_id", "result"},
		),
		feedback: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_feedback_labels_total",
				Help: "Reviewer labels received by kind",
			},
			[]string{"kind"},
		),
		lastVersion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "model_last_trained_version",
				Help: "Version produced by the most recent successful run",
			},
			[]string{"model_id"},
		),
	}

	me.registry.MustRegister(
		me.trainingRuns,
		me.trainingDuration,
		me.retries,
		me.rollbacks,
		me.feedback,
		me.lastVersion,
	)

	if stats != nil {
		gauge := func(name, help string, value func(models.SchedulerStats) int) prometheus.GaugeFunc {
			return prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{Name: name, Help: help},
				func() float64 { return float64(value(stats.GetStats())) },
			)
		}
		me.registry.MustRegister(
			gauge("model_training_jobs", "Registered training jobs", func(s models.SchedulerStats) int { return s.TotalJobs }),
			gauge("model_training_jobs_active", "Training jobs with an armed timer", func(s models.SchedulerStats) int { return s.ActiveJobs }),
			gauge("model_training_jobs_completed", "Training jobs whose last run succeeded", func(s models.SchedulerStats) int { return s.CompletedJobs }),
			gauge("model_training_jobs_failed", "Training jobs whose last run failed", func(s models.SchedulerStats) int { return s.FailedJobs }),
		)
	}
	return me
}

// Registry exposes the underlying registry
func (me *MetricsExporter) Registry() *prometheus.Registry {
	return me.registry
}

// Handler serves the registry in the Prometheus text format
func (me *MetricsExporter) Handler() http.Handler {
	return promhttp.HandlerFor(me.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished training run
func (me *MetricsExporter) ObserveRun(jobID, modelID string, result *models.JobResult) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
		me.lastVersion.WithLabelValues(modelID).Set(float64(result.Version))
	}
	me.trainingRuns.WithLabelValues(jobID, modelID, outcome).Inc()
	me.trainingDuration.Observe(result.TrainingTime.Seconds())
}

// ObserveRetry records a scheduled retry
func (me *MetricsExporter) ObserveRetry(jobID string) {
	me.retries.WithLabelValues(jobID).Inc()
}

// ObserveRollback records a rollback attempt
func (me *MetricsExporter) ObserveRollback(modelID string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	me.rollbacks.WithLabelValues(modelID, result).Inc()
}

// ObserveFeedback records a new reviewer label
func (me *MetricsExporter) ObserveFeedback(label *models.FeedbackLabel) {
	kind := "agree"
	switch {
	case label.FalsePositive:
		kind = "false_positive"
	case label.FalseNegative:
		kind = "false_negative"
	}
	me.feedback.WithLabelValues(kind).Inc()
}
