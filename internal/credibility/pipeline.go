package credibility

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/trustscan/backend/internal/domain"
)

// Pipeline scores review text with a classifier.
type Pipeline struct {
	classifier domain.Classifier
}

// NewPipeline creates a pipeline around the given classifier
func NewPipeline(classifier domain.Classifier) *Pipeline {
	return &Pipeline{classifier: classifier}
}

// Score runs text through tokenizer, shaper, classifier, normalizer and
// resolver. Every failure comes back as a *domain.ClassifierError.
func (p *Pipeline) Score(ctx context.Context, text string) (*domain.Credibility, error) {
	if p.classifier == nil {
		return nil, &domain.ClassifierError{Kind: domain.LoadFailed, Cause: errors.New("no classifier configured")}
	}

	input := Encode(text)

	prediction, err := p.classifier.Predict(ctx, input)
	if err != nil {
		if _, ok := domain.IsClassifierError(err); ok {
			return nil, err
		}
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: err}
	}
	if prediction == nil || len(prediction.RawScores) == 0 {
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: errors.New("empty prediction")}
	}

	if label, ok := firstNonFinite(prediction.RawScores); ok {
		return nil, &domain.ClassifierError{
			Kind:  domain.InferenceFailed,
			Cause: fmt.Errorf("raw score for %q is not finite", label),
		}
	}

	distribution := Normalize(prediction.RawScores)
	if label, ok := firstNonFinite(distribution); ok {
		return nil, &domain.ClassifierError{
			Kind:  domain.InferenceFailed,
			Cause: fmt.Errorf("normalized score for %q is not finite", label),
		}
	}

	label := prediction.Label
	if label == "" {
		label = WinningLabel(distribution)
	}
	if _, ok := distribution[label]; !ok {
		return nil, &domain.ClassifierError{
			Kind:  domain.InferenceFailed,
			Cause: fmt.Errorf("winning label %q has no score", label),
		}
	}

	return &domain.Credibility{
		Score:        Resolve(distribution, label),
		Label:        label,
		Confidence:   distribution[label],
		Distribution: distribution,
	}, nil
}

// firstNonFinite returns a label whose score is NaN or infinite.
func firstNonFinite(scores map[string]float64) (string, bool) {
	for label, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return label, true
		}
	}
	return "", false
}
