package models

import "time"

// SavedModel is a persisted, versioned output of a training run.
// Metadata is stored as JSON, so numbers in it load back as float64.
type SavedModel struct {
	ModelID           string                 `json:"model_id"`
	Version           int                    `json:"version"`
	Type              string                 `json:"type"`
	Metrics           EvaluationMetrics      `json:"metrics"`
	FeatureImportance map[string]float64     `json:"feature_importance,omitempty"`
	Weights           map[string]float64     `json:"weights,omitempty"`
	TrainingInfo      TrainingInfo           `json:"training_info"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// TrainingInfo records the provenance of an artifact
type TrainingInfo struct {
	Samples      int           `json:"samples"`
	Features     int           `json:"features"`
	TrainingTime time.Duration `json:"training_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ModelVersions lists the stored versions of one model in ascending order
type ModelVersions struct {
	ModelID  string `json:"id"`
	Versions []int  `json:"versions"`
}

// ActivePointer pins the version currently served for a model
type ActivePointer struct {
	ModelID   string    `json:"model_id"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Reason    string    `json:"reason,omitempty"`
}
