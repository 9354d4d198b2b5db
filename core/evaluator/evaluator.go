// Package evaluator computes classification-quality metrics for labeled predictions.
package evaluator

import (
	"fmt"
	"sort"

	"model-lifecycle/core/models"
)

// PairwiseLimit is the largest positive x negative pair count scored with the
// pairwise ROC-AUC count. Larger batches use the sort-based count, which has the
// same tie handling.
const PairwiseLimit = 1_000_000

// Evaluate computes metrics for a non-empty batch of predictions
func Evaluate(predictions []models.Prediction) (*models.EvaluationMetrics, error) {
	if len(predictions) == 0 {
		return nil, fmt.Errorf("evaluate: %w: %w", models.ErrInvalidInput, models.ErrEmptyInput)
	}

	var cm models.ConfusionMatrix
	positives := make([]float64, 0, len(predictions))
	negatives := make([]float64, 0, len(predictions))

	for _, p := range predictions {
		actual := normalize(p.Actual)
		predicted := normalize(p.Predicted)

		switch {
		case actual == 1 && predicted == 1:
			cm.TruePositives++
		case actual == 0 && predicted == 0:
			cm.TrueNegatives++
		case actual == 0 && predicted == 1:
			cm.FalsePositives++
		default:
			cm.FalseNegatives++
		}

		score := float64(predicted)
		if p.Probability != nil {
			score = *p.Probability
		}
		if actual == 1 {
			positives = append(positives, score)
		} else {
			negatives = append(negatives, score)
		}
	}

	tp, tn := float64(cm.TruePositives), float64(cm.TrueNegatives)
	fp, fn := float64(cm.FalsePositives), float64(cm.FalseNegatives)

	m := &models.EvaluationMetrics{
		Accuracy:        (tp + tn) / float64(len(predictions)),
		Precision:       safeDiv(tp, tp+fp),
		Recall:          safeDiv(tp, tp+fn),
		Specificity:     safeDiv(tn, tn+fp),
		Sensitivity:     safeDiv(tp, tp+fn),
		ConfusionMatrix: cm,
		ROCAUC:          ROCAUC(positives, negatives),
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// ROCAUC is the share of positive/negative pairs where the positive scores higher.
// Ties count as neither. Returns 0.5 when either class is empty.
func ROCAUC(positives, negatives []float64) float64 {
	if len(positives) == 0 || len(negatives) == 0 {
		return 0.5
	}
	pairs := len(positives) * len(negatives)
	var concordant int
	if pairs <= PairwiseLimit {
		concordant = concordantPairwise(positives, negatives)
	} else {
		concordant = concordantSorted(positives, negatives)
	}
	return float64(concordant) / float64(pairs)
}

// concordantPairwise is O(nPos*nNeg)
func concordantPairwise(positives, negatives []float64) int {
	n := 0
	for _, p := range positives {
		for _, q := range negatives {
			if p > q {
				n++
			}
		}
	}
	return n
}

// concordantSorted is O((nPos+nNeg) log nNeg)
func concordantSorted(positives, negatives []float64) int {
	sorted := make([]float64, len(negatives))
	copy(sorted, negatives)
	sort.Float64s(sorted)

	n := 0
	for _, p := range positives {
		// negatives strictly below p
		n += sort.SearchFloat64s(sorted, p)
	}
	return n
}

func normalize(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}

func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}
