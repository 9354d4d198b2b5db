package training

import (
	"context"
	"fmt"
	"time"

	"model-lifecycle/core/evaluator"
	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
)

// FeedbackSource supplies reviewer labels
type FeedbackSource interface {
	All(ctx context.Context) ([]*models.FeedbackLabel, error)
}

// ArtifactStore persists trained versions
type ArtifactStore interface {
	SaveNext(artifact *models.SavedModel) (int, string, error)
	SetActive(modelID string, version int, reason string) error
}

// PipelineConfig bounds what a run will accept
type PipelineConfig struct {
	MinSamples int
	MinF1      float64
}

// Pipeline trains a model from feedback: scan, fit, evaluate, save, activate
type Pipeline struct {
	cfg      PipelineConfig
	feedback FeedbackSource
	fitter   Fitter
	store    ArtifactStore
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline creates a training pipeline
func NewPipeline(cfg PipelineConfig, feedback FeedbackSource, fitter Fitter, store ArtifactStore, log *logger.Logger) *Pipeline {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 1
	}
	return &Pipeline{
		cfg:      cfg,
		feedback: feedback,
		fitter:   fitter,
		store:    store,
		log:      log.With("component", "training"),
		now:      time.Now,
	}
}

// Train runs one training attempt for modelID
func (p *Pipeline) Train(ctx context.Context, modelID string) (*models.TrainingOutcome, error) {
	start := p.now()
	log := p.log.With("model_id", modelID)

	labels, err := p.feedback.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feedback for model %s: %w: %w", modelID, models.ErrTrainingFailure, err)
	}
	if len(labels) < p.cfg.MinSamples {
		return nil, fmt.Errorf("model %s: %d labeled samples, need %d: %w", modelID, len(labels), p.cfg.MinSamples, models.ErrTrainingFailure)
	}

	samples := make([]Sample, len(labels))
	for i, l := range labels {
		samples[i] = SampleFromLabel(l)
	}

	fit, err := p.fitter.Fit(ctx, samples)
	if err != nil {
		return nil, fmt.Errorf("fit model %s: %w: %w", modelID, models.ErrTrainingFailure, err)
	}

	metrics, err := evaluator.Evaluate(fit.Predictions)
	if err != nil {
		return nil, fmt.Errorf("evaluate model %s: %w: %w", modelID, models.ErrTrainingFailure, err)
	}
	if metrics.F1Score < p.cfg.MinF1 {
		return nil, fmt.Errorf("model %s: f1 %.4f below minimum %.4f: %w", modelID, metrics.F1Score, p.cfg.MinF1, models.ErrTrainingFailure)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("model %s: %w: %w", modelID, models.ErrTrainingFailure, err)
	}

	elapsed := p.now().Sub(start)
	artifact := &models.SavedModel{
		ModelID:           modelID,
		Type:              fit.Type,
		Metrics:           *metrics,
		FeatureImportance: fit.FeatureImportance,
		Weights:           fit.Weights,
		TrainingInfo: models.TrainingInfo{
			Samples:      len(samples),
			Features:     fit.Features,
			TrainingTime: elapsed,
			Timestamp:    p.now(),
		},
		Metadata: map[string]interface{}{
			"source": "feedback",
			"min_f1": p.cfg.MinF1,
		},
	}

	version, path, err := p.store.SaveNext(artifact)
	if err != nil {
		return nil, fmt.Errorf("save model %s: %w: %w", modelID, models.ErrTrainingFailure, err)
	}
	if err := p.store.SetActive(modelID, version, "trained"); err != nil {
		// the version is saved; serving keeps the previous pointer
		log.Warn("Failed to activate new version", "version", version, "error", err)
	}

	log.Info("Model trained",
		"version", version,
		"path", path,
		"samples", len(samples),
		"f1", metrics.F1Score,
		"accuracy", metrics.Accuracy,
		"roc_auc", metrics.ROCAUC,
		"training_time", elapsed.String(),
	)
	return &models.TrainingOutcome{Version: version, TrainingTime: elapsed}, nil
}
