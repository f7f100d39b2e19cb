package credibility

import (
	"sort"

	"github.com/trustscan/backend/internal/domain"
)

// Resolve maps a distribution and the winning label onto the authentic
// polarity: an "OR" win keeps its confidence, any other label inverts it. A
// winning label missing from the distribution counts as zero confidence.
func Resolve(distribution map[string]float64, winningLabel string) float64 {
	confidence := distribution[winningLabel]

	var score float64
	if winningLabel == domain.LabelOriginal {
		score = confidence
	} else {
		score = 1.0 - confidence
	}
	return clamp01(score)
}

// WinningLabel returns the label with the highest probability. Ties go to the
// lexically smallest label so the choice is deterministic.
func WinningLabel(distribution map[string]float64) string {
	labels := make([]string, 0, len(distribution))
	for label := range distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := ""
	for _, label := range labels {
		if best == "" || distribution[label] > distribution[best] {
			best = label
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
