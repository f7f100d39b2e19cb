package domain

// SequenceLength is the fixed token sequence width the classifier consumes.
// The tokenizer, the shaper and every classifier share this one value.
const SequenceLength = 100

// VocabularySize bounds token indices to [0, VocabularySize).
const VocabularySize = 10000

// PaddingIndex fills shaped sequences past the end of the text.
const PaddingIndex = 0

// Classifier labels.
const (
	LabelOriginal          = "OR" // authentic review
	LabelComputerGenerated = "CG" // fabricated review
)

// Prediction is what a classifier returns for one input sequence. RawScores may
// be probabilities or unnormalized logits.
type Prediction struct {
	Label     string             `json:"label"`
	RawScores map[string]float64 `json:"rawScores"`
}

// Credibility is the resolved authenticity score of a review.
type Credibility struct {
	Score        float64            `json:"score"` // 0..1, high means authentic
	Label        string             `json:"label"`
	Confidence   float64            `json:"confidence"`
	Distribution map[string]float64 `json:"distribution"`
}

// Passes reports whether the score reaches the given display threshold.
func (c Credibility) Passes(threshold float64) bool {
	return c.Score >= threshold
}
