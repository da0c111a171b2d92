package models

import (
	"time"

	"github.com/google/uuid"
)

// SimilarityEdge is one directed row of the symmetric similarity relation.
// For every scored pair both (A, B) and (B, A) are stored with the same value.
type SimilarityEdge struct {
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reverse returns the edge pointing the other way with the same value.
func (e SimilarityEdge) Reverse() SimilarityEdge {
	return SimilarityEdge{
		SourceID:   e.TargetID,
		TargetID:   e.SourceID,
		Similarity: e.Similarity,
		CreatedAt:  e.CreatedAt,
	}
}
