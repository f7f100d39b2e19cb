package credibility

import "math"

const (
	// distributionTolerance is how far from 1 a score sum may be and still be
	// taken as an existing probability distribution.
	distributionTolerance = 0.01
)

// Normalize returns a probability distribution over the labels of raw. Scores
// that already sum to 1 (within 0.01) are returned as they are; anything else
// is treated as logits and passed through softmax. The input map is not
// modified.
func Normalize(raw map[string]float64) map[string]float64 {
	dist := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return dist
	}

	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	if math.Abs(sum-1.0) <= distributionTolerance {
		for label, v := range raw {
			dist[label] = v
		}
		return dist
	}

	return Softmax(raw)
}

// Softmax computes exp(x_i) / sum(exp(x_j)). The maximum is subtracted first,
// which leaves the result unchanged and keeps exp from overflowing.
func Softmax(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	maxScore := math.Inf(-1)
	for _, v := range raw {
		if v > maxScore {
			maxScore = v
		}
	}

	expSum := 0.0
	for label, v := range raw {
		e := math.Exp(v - maxScore)
		out[label] = e
		expSum += e
	}
	for label := range out {
		out[label] /= expSum
	}
	return out
}
