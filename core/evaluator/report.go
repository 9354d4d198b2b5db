package evaluator

import (
	"fmt"
	"strings"

	"model-lifecycle/core/models"
)

// FormatConfusionMatrix renders the 2x2 matrix as a small text table
func FormatConfusionMatrix(cm models.ConfusionMatrix) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %12s %12s\n", "", "Pred Benign", "Pred Threat")
	fmt.Fprintf(&b, "%-18s %12d %12d\n", "Actual Benign", cm.TrueNegatives, cm.FalsePositives)
	fmt.Fprintf(&b, "%-18s %12d %12d\n", "Actual Threat", cm.FalseNegatives, cm.TruePositives)
	return b.String()
}

// GenerateReport renders a human-readable evaluation summary
func GenerateReport(m *models.EvaluationMetrics) string {
	var b strings.Builder
	b.WriteString("Model Evaluation Report\n")
	b.WriteString("=======================\n")
	fmt.Fprintf(&b, "Samples:     %d\n", m.ConfusionMatrix.Total())
	fmt.Fprintf(&b, "Accuracy:    %.4f\n", m.Accuracy)
	fmt.Fprintf(&b, "Precision:   %.4f\n", m.Precision)
	fmt.Fprintf(&b, "Recall:      %.4f\n", m.Recall)
	fmt.Fprintf(&b, "F1 Score:    %.4f\n", m.F1Score)
	fmt.Fprintf(&b, "ROC AUC:     %.4f\n", m.ROCAUC)
	fmt.Fprintf(&b, "Specificity: %.4f\n", m.Specificity)
	fmt.Fprintf(&b, "Sensitivity: %.4f\n", m.Sensitivity)
	b.WriteString("\nConfusion Matrix\n")
	b.WriteString(FormatConfusionMatrix(m.ConfusionMatrix))
	return b.String()
}
