// Package classifier provides review classifiers that satisfy domain.Classifier.
package classifier

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/trustscan/backend/internal/credibility"
	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Output modes of a linear model file.
const (
	OutputLogits        = "logits"
	OutputProbabilities = "probabilities"
)

// modelFile is the on-disk form of a linear bag-of-words model.
type modelFile struct {
	Labels     []string                      `json:"labels"`
	Output     string                        `json:"output"`
	Bias       map[string]float64            `json:"bias"`
	Vocabulary map[string]map[string]float64 `json:"vocabulary"`
}

// linearWeights is a parsed model with words already hashed into token indices.
type linearWeights struct {
	labels  []string
	output  string
	bias    []float64
	weights map[int32][]float64
}

// parseModel validates a model document and hashes its vocabulary with the
// review tokenizer. Words colliding on one index have their weights summed.
func parseModel(data []byte) (*linearWeights, error) {
	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidModel, err)
	}
	if len(file.Labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", domain.ErrInvalidModel)
	}

	output := file.Output
	switch output {
	case "":
		output = OutputLogits
	case OutputLogits, OutputProbabilities:
	default:
		return nil, fmt.Errorf("%w: unknown output %q", domain.ErrInvalidModel, file.Output)
	}

	position := make(map[string]int, len(file.Labels))
	for i, label := range file.Labels {
		if label == "" {
			return nil, fmt.Errorf("%w: empty label", domain.ErrInvalidModel)
		}
		if _, dup := position[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", domain.ErrInvalidModel, label)
		}
		position[label] = i
	}

	model := &linearWeights{
		labels:  file.Labels,
		output:  output,
		bias:    make([]float64, len(file.Labels)),
		weights: make(map[int32][]float64, len(file.Vocabulary)),
	}
	for label, b := range file.Bias {
		i, ok := position[label]
		if !ok {
			return nil, fmt.Errorf("%w: bias for unknown label %q", domain.ErrInvalidModel, label)
		}
		model.bias[i] = b
	}

	for word, perLabel := range file.Vocabulary {
		index := int32(credibility.TokenIndex(strings.ToLower(word)))
		row, ok := model.weights[index]
		if !ok {
			row = make([]float64, len(file.Labels))
			model.weights[index] = row
		}
		for label, w := range perLabel {
			i, ok := position[label]
			if !ok {
				return nil, fmt.Errorf("%w: word %q weights unknown label %q", domain.ErrInvalidModel, word, label)
			}
			row[i] += w
		}
	}

	return model, nil
}

// scores computes bias plus the mean weight of the non-padding tokens.
func (m *linearWeights) scores(sequence []int32) map[string]float64 {
	sums := make([]float64, len(m.labels))
	tokens := 0
	for _, index := range sequence {
		if index == domain.PaddingIndex {
			continue
		}
		tokens++
		if row, ok := m.weights[index]; ok {
			for i, w := range row {
				sums[i] += w
			}
		}
	}

	raw := make(map[string]float64, len(m.labels))
	for i, label := range m.labels {
		v := m.bias[i]
		if tokens > 0 {
			v += sums[i] / float64(tokens)
		}
		raw[label] = v
	}
	if m.output == OutputProbabilities {
		return credibility.Softmax(raw)
	}
	return raw
}

// LinearModel is a bag-of-words linear classifier read from a JSON file on
// first use. It is safe for concurrent use.
type LinearModel struct {
	path   string
	logger logger.Logger

	mu    sync.Mutex
	model *linearWeights
}

// NewLinearModel returns a classifier backed by the model file at path. The
// file is not read until the first prediction.
func NewLinearModel(path string, log logger.Logger) *LinearModel {
	if log == nil {
		log = logger.NewNop()
	}
	return &LinearModel{
		path:   path,
		logger: log.With(logger.Component("classifier")),
	}
}

// NewLinearModelFromBytes returns a classifier for an in-memory model document.
func NewLinearModelFromBytes(data []byte) (*LinearModel, error) {
	model, err := parseModel(data)
	if err != nil {
		return nil, err
	}
	return &LinearModel{logger: logger.NewNop(), model: model}, nil
}

// load reads the model once. A failed load is not remembered, so a model file
// that appears later is picked up by the next prediction.
func (l *LinearModel) load() (*linearWeights, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model != nil {
		return l.model, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		l.logger.Error("failed to read model", logger.String("path", l.path), logger.Error(err))
		return nil, err
	}
	model, err := parseModel(data)
	if err != nil {
		l.logger.Error("failed to parse model", logger.String("path", l.path), logger.Error(err))
		return nil, err
	}

	l.logger.Info("model loaded",
		logger.String("path", l.path),
		logger.Int("labels", len(model.labels)),
		logger.Int("vocabulary", len(model.weights)),
		logger.String("output", model.output))
	l.model = model
	return model, nil
}

// Predict scores a sequence of exactly domain.SequenceLength token indices.
func (l *LinearModel) Predict(ctx context.Context, sequence []int32) (*domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: err}
	}

	model, err := l.load()
	if err != nil {
		return nil, &domain.ClassifierError{Kind: domain.LoadFailed, Cause: err}
	}

	if len(sequence) != domain.SequenceLength {
		return nil, &domain.ClassifierError{
			Kind:  domain.InferenceFailed,
			Cause: fmt.Errorf("input shape [1, %d], want [1, %d]", len(sequence), domain.SequenceLength),
		}
	}

	raw := model.scores(sequence)
	return &domain.Prediction{
		Label:     credibility.WinningLabel(raw),
		RawScores: raw,
	}, nil
}
