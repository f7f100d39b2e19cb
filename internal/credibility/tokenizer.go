// Package credibility turns review text into a credibility score: tokenize,
// shape to the classifier width, classify, normalize and resolve polarity.
// Everything here except the classifier call is pure.
package credibility

import (
	"hash/fnv"
	"strings"

	"github.com/trustscan/backend/internal/domain"
)

// Tokenize lower-cases text, splits it on whitespace and maps every word to a
// token index in [0, domain.VocabularySize). The result has one entry per word.
func Tokenize(text string) []int {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]int, len(words))
	for i, word := range words {
		tokens[i] = TokenIndex(word)
	}
	return tokens
}

// TokenIndex maps one already lower-cased word to its token index.
func TokenIndex(word string) int {
	return int(StableHash(word) % domain.VocabularySize)
}

// StableHash is 32-bit FNV-1a over the UTF-8 bytes of s. It is identical
// across runs, processes and platforms.
func StableHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
