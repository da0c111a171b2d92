// Package similarity maintains the persisted pairwise similarity relation
// between active listings and answers "similar to" and "recommended for"
// queries from it.
package similarity

import (
	"math"

	"bazaar/internal/models"
)

// Component weights of the combined listing similarity. They sum to 1.
const (
	TitleWeight       = 0.40
	DescriptionWeight = 0.30
	CategoryWeight    = 0.10
	SubCategoryWeight = 0.10
	LocationWeight    = 0.10
)

// MinSimilarity is the lowest combined score read queries surface. It is
// never applied when edges are written.
const MinSimilarity = 0.25

// Cosine returns the cosine similarity of a and b in [-1, 1]. It returns 0
// when either vector has zero magnitude or the lengths differ, so absent
// vectors contribute nothing.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}

	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, c))
}

// Score is the weighted similarity of a source listing's vectors to a
// target's. The description component counts only when the source has a
// description.
func Score(source models.VectorBundle, sourceHasDescription bool, target models.VectorBundle) float64 {
	s := TitleWeight * Cosine(source.Title, target.Title)
	if sourceHasDescription {
		s += DescriptionWeight * Cosine(source.Description, target.Description)
	}
	s += CategoryWeight * Cosine(source.Category, target.Category)
	s += SubCategoryWeight * Cosine(source.SubCategory, target.SubCategory)
	s += LocationWeight * Cosine(source.Location, target.Location)
	return s
}

// dot is the plain dot product of equal-length vectors, 0 otherwise.
func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
