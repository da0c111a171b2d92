package vectors

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimension is the vector length of the hashing embedder when none
// is configured.
const DefaultDimension = 256

// HashingEmbedder is a deterministic, corpus-free text embedder. Each text
// is reduced to lower-cased word tokens (stopwords removed) plus the
// character trigrams of every token longer than three runes. Features are
// hashed into a fixed number of buckets with a hash-derived sign, and the
// result is L2-normalised, so texts sharing words or word fragments have a
// positive cosine similarity.
type HashingEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewHashingEmbedder creates an embedder producing vectors of length
// dimension. Non-positive values fall back to DefaultDimension.
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashingEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *HashingEmbedder) Name() string { return "local" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *HashingEmbedder) Dimension() int { return e.dimension }

// Embed never fails; the context is accepted to satisfy ai.Embedder.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return e.Vector(text), nil
}

// Vector computes the embedding of text. Text without any token yields the
// zero vector.
func (e *HashingEmbedder) Vector(text string) []float64 {
	vec := make([]float64, e.dimension)
	for _, feature := range e.features(text) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dimension))
		// The top bit decides the sign so colliding features tend to cancel.
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (e *HashingEmbedder) features(text string) []string {
	tokens := e.tokenize(text)
	out := make([]string, 0, len(tokens)*4)
	for _, tok := range tokens {
		out = append(out, "w:"+tok)
		if utf8.RuneCountInString(tok) <= 3 {
			continue
		}
		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			out = append(out, "t:"+string(runes[i:i+3]))
		}
	}
	return out
}

func (e *HashingEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
