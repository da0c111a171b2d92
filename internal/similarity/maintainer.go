package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
)

// EdgeStore is the persistence the Maintainer rewrites. Implementations
// bound to a transaction make a rewrite atomic.
type EdgeStore interface {
	// ActiveVectors returns the vectors of every active listing except
	// exclude.
	ActiveVectors(ctx context.Context, exclude uuid.UUID) ([]models.ListingVectors, error)

	// ReplaceEdges deletes every edge touching id and inserts edges.
	ReplaceEdges(ctx context.Context, id uuid.UUID, edges []models.SimilarityEdge) error

	// DeleteEdges deletes every edge touching id.
	DeleteEdges(ctx context.Context, id uuid.UUID) error
}

// TxRunner runs fn against an EdgeStore inside its own transaction,
// committing when fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(EdgeStore) error) error
}

// Maintainer rewrites the similarity edges of a listing against every other
// active listing. Recompute and Remove run inside the caller's transaction
// and return errors so the caller can roll back; the Detached variants own
// their transaction and only log failures.
type Maintainer struct {
	runner TxRunner
	now    func() time.Time
}

// NewMaintainer creates a Maintainer. runner is used by the Detached
// variants only.
func NewMaintainer(runner TxRunner) *Maintainer {
	return &Maintainer{runner: runner, now: time.Now}
}

// Recompute scores l against every other active listing and replaces all
// edges touching l with the new symmetric set: two edges per pair, equal
// values, no threshold.
func (m *Maintainer) Recompute(ctx context.Context, es EdgeStore, l *models.Listing) error {
	return m.recompute(ctx, es, l, metrics.ModeInline)
}

// RecomputeDetached is Recompute in its own transaction. A failure is
// logged and leaves the listing without fresh edges.
func (m *Maintainer) RecomputeDetached(ctx context.Context, l *models.Listing) {
	err := m.runner.InTx(ctx, func(es EdgeStore) error {
		return m.recompute(ctx, es, l, metrics.ModeDetached)
	})
	if err != nil {
		slog.Error("detached similarity recompute failed", "listing_id", l.ID, "error", err)
	}
}

func (m *Maintainer) recompute(ctx context.Context, es EdgeStore, l *models.Listing, mode string) error {
	start := time.Now()

	others, err := es.ActiveVectors(ctx, l.ID)
	if err != nil {
		metrics.RecordRecompute(mode, time.Since(start), 0, err)
		return fmt.Errorf("recompute similarity: %w", err)
	}

	edges := BuildEdges(l, others, m.now())
	if err := es.ReplaceEdges(ctx, l.ID, edges); err != nil {
		metrics.RecordRecompute(mode, time.Since(start), 0, err)
		return fmt.Errorf("recompute similarity: %w", err)
	}

	metrics.RecordRecompute(mode, time.Since(start), len(edges), nil)
	slog.Debug("similarity recomputed", "listing_id", l.ID, "pairs", len(others), "mode", mode)
	return nil
}

// BuildEdges scores l against others and returns both directed edges of
// every pair.
func BuildEdges(l *models.Listing, others []models.ListingVectors, at time.Time) []models.SimilarityEdge {
	edges := make([]models.SimilarityEdge, 0, 2*len(others))
	for _, o := range others {
		if o.ID == l.ID {
			continue
		}
		e := models.SimilarityEdge{
			SourceID:   l.ID,
			TargetID:   o.ID,
			Similarity: Score(l.Vectors, l.HasDescription(), o.Vectors),
			CreatedAt:  at,
		}
		edges = append(edges, e, e.Reverse())
	}
	return edges
}

// Remove deletes every edge touching id inside the caller's transaction.
func (m *Maintainer) Remove(ctx context.Context, es EdgeStore, id uuid.UUID) error {
	if err := es.DeleteEdges(ctx, id); err != nil {
		return fmt.Errorf("remove similarity: %w", err)
	}
	return nil
}

// RemoveDetached is Remove in its own transaction. Failures are logged.
func (m *Maintainer) RemoveDetached(ctx context.Context, id uuid.UUID) {
	err := m.runner.InTx(ctx, func(es EdgeStore) error {
		return m.Remove(ctx, es, id)
	})
	if err != nil {
		slog.Error("detached similarity removal failed", "listing_id", id, "error", err)
	}
}
