package credibility

import "github.com/trustscan/backend/internal/domain"

// Shape truncates seq to its first targetLength entries or right-pads it with
// domain.PaddingIndex. The result always has exactly targetLength entries and
// never aliases seq.
func Shape(seq []int, targetLength int) []int {
	if targetLength < 0 {
		targetLength = 0
	}
	shaped := make([]int, targetLength)
	n := copy(shaped, seq)
	for i := n; i < targetLength; i++ {
		shaped[i] = domain.PaddingIndex
	}
	return shaped
}

// ToInput converts a shaped sequence into the int32 row the classifier takes.
func ToInput(shaped []int) []int32 {
	input := make([]int32, len(shaped))
	for i, v := range shaped {
		input[i] = int32(v)
	}
	return input
}

// Encode tokenizes text and shapes it to domain.SequenceLength.
func Encode(text string) []int32 {
	return ToInput(Shape(Tokenize(text), domain.SequenceLength))
}
