package training

import (
	"context"
	"fmt"
	"sort"

	"model-lifecycle/core/models"
)

// ThresholdModelType is the artifact type written by ThresholdFitter
const ThresholdModelType = "confidence-threshold"

// Sample is one labeled training example
type Sample struct {
	// Score is the model's belief that the request is a threat, in [0,1]
	Score  float64
	Actual int
}

// Fit is the result of fitting a model to samples
type Fit struct {
	Type              string
	Weights           map[string]float64
	FeatureImportance map[string]float64
	Features          int
	// Predictions are the fitted model's outputs over the training samples
	Predictions []models.Prediction
}

// Fitter turns samples into a fitted model
type Fitter interface {
	Fit(ctx context.Context, samples []Sample) (*Fit, error)
}

// ThresholdFitter picks the score cut-off that maximizes F1 over the samples
type ThresholdFitter struct{}

func (ThresholdFitter) Fit(ctx context.Context, samples []Sample) (*Fit, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("threshold fit: %w", models.ErrEmptyInput)
	}

	candidates := make([]float64, 0, len(samples)+1)
	candidates = append(candidates, 0.5)
	for _, s := range samples {
		candidates = append(candidates, s.Score)
	}
	sort.Float64s(candidates)

	best, bestF1 := 0.5, -1.0
	for i, t := range candidates {
		if i > 0 && t == candidates[i-1] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f1 := thresholdF1(samples, t); f1 > bestF1 {
			best, bestF1 = t, f1
		}
	}

	predictions := make([]models.Prediction, len(samples))
	for i, s := range samples {
		score := s.Score
		predicted := 0
		if score >= best {
			predicted = 1
		}
		predictions[i] = models.Prediction{Actual: s.Actual, Predicted: predicted, Probability: &score}
	}

	return &Fit{
		Type:              ThresholdModelType,
		Weights:           map[string]float64{"threshold": best},
		FeatureImportance: map[string]float64{"confidence": 1},
		Features:          1,
		Predictions:       predictions,
	}, nil
}

func thresholdF1(samples []Sample, t float64) float64 {
	var tp, fp, fn int
	for _, s := range samples {
		predicted := s.Score >= t
		switch {
		case predicted && s.Actual == 1:
			tp++
		case predicted:
			fp++
		case s.Actual == 1:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	return 2 * precision * recall / (precision + recall)
}

// SampleFromLabel turns reviewer feedback into a training sample. Confidence is
// read as confidence in the predicted label.
func SampleFromLabel(l *models.FeedbackLabel) Sample {
	score := l.Confidence
	if l.PredictedLabel == 0 {
		score = 1 - l.Confidence
	}
	return Sample{Score: score, Actual: l.ActualLabel}
}
