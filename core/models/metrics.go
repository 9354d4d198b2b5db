package models

// Prediction is one labeled prediction fed to the evaluator.
// Probability is optional; when nil the predicted label is used as the score.
type Prediction struct {
	Actual      int      `json:"actual"`
	Predicted   int      `json:"predicted"`
	Probability *float64 `json:"probability,omitempty"`
}

// ConfusionMatrix holds the 2x2 classification counts
type ConfusionMatrix struct {
	TruePositives  int `json:"tp"`
	TrueNegatives  int `json:"tn"`
	FalsePositives int `json:"fp"`
	FalseNegatives int `json:"fn"`
}

// Total returns the number of classified predictions
func (c ConfusionMatrix) Total() int {
	return c.TruePositives + c.TrueNegatives + c.FalsePositives + c.FalseNegatives
}

// EvaluationMetrics are derived classification-quality metrics
type EvaluationMetrics struct {
	Accuracy        float64         `json:"accuracy"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1_score"`
	ROCAUC          float64         `json:"roc_auc"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
	Specificity     float64         `json:"specificity"`
	Sensitivity     float64         `json:"sensitivity"`
}
