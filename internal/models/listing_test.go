package models

import (
	"testing"
	"time"
)

// TestListingIsActive verifies the active invariant: not expired and not closed.
func TestListingIsActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closed := now.Add(-time.Hour)

	tests := []struct {
		name      string
		expiresAt time.Time
		closedAt  *time.Time
		want      bool
	}{
		{name: "open and not expired", expiresAt: now.Add(24 * time.Hour), want: true},
		{name: "expired", expiresAt: now.Add(-time.Minute), want: false},
		{name: "expires exactly now", expiresAt: now, want: false},
		{name: "closed before expiry", expiresAt: now.Add(24 * time.Hour), closedAt: &closed, want: false},
		{name: "closed and expired", expiresAt: now.Add(-time.Hour), closedAt: &closed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Listing{ExpiresAt: tt.expiresAt, ClosedAt: tt.closedAt}
			if got := l.IsActive(now); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListingHasDescription(t *testing.T) {
	if (&Listing{}).HasDescription() {
		t.Error("empty description reported as present")
	}
	if !(&Listing{Description: "Barely used"}).HasDescription() {
		t.Error("description not detected")
	}
}

func TestSimilarityEdgeReverse(t *testing.T) {
	e := SimilarityEdge{Similarity: 0.42}
	e.SourceID[0] = 1
	e.TargetID[0] = 2

	r := e.Reverse()
	if r.SourceID != e.TargetID || r.TargetID != e.SourceID {
		t.Errorf("Reverse swapped ids incorrectly: %+v", r)
	}
	if r.Similarity != e.Similarity {
		t.Errorf("Reverse similarity = %v, want %v", r.Similarity, e.Similarity)
	}
}
