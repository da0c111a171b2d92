// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

// SimilarityStore persists the pairwise listing similarity relation. Both
// directions of every scored pair are stored as separate rows.
type SimilarityStore struct {
	db DBTX
}

// NewSimilarityStore creates a new SimilarityStore.
func NewSimilarityStore(db DBTX) *SimilarityStore {
	return &SimilarityStore{db: db}
}

// WithTx returns a SimilarityStore whose statements run inside tx.
func (s *SimilarityStore) WithTx(tx *sql.Tx) *SimilarityStore {
	return &SimilarityStore{db: tx}
}

// ActiveVectors returns the vector bundle of every active listing except
// exclude.
func (s *SimilarityStore) ActiveVectors(ctx context.Context, exclude uuid.UUID) ([]models.ListingVectors, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, vectors
		FROM listings
		WHERE id <> $1 AND expires_at > NOW() AND closed_at IS NULL
	`, exclude)
	if err != nil {
		return nil, fmt.Errorf("list active vectors: %w", err)
	}
	defer rows.Close()

	var items []models.ListingVectors
	for rows.Next() {
		var v models.ListingVectors
		if err := rows.Scan(&v.ID, &v.Description, &v.Vectors); err != nil {
			return nil, fmt.Errorf("scan listing vectors: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// ReplaceEdges deletes every edge touching id, in either direction, then
// bulk inserts edges. Callers bind the store to a transaction so readers
// never see the relation half rewritten.
func (s *SimilarityStore) ReplaceEdges(ctx context.Context, id uuid.UUID, edges []models.SimilarityEdge) error {
	if err := s.DeleteEdges(ctx, id); err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}

	sources := make([]string, len(edges))
	targets := make([]string, len(edges))
	scores := make([]float64, len(edges))
	for i, e := range edges {
		sources[i] = e.SourceID.String()
		targets[i] = e.TargetID.String()
		scores[i] = e.Similarity
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listing_similarities (source_id, target_id, similarity)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::float8[])
	`, sources, targets, scores)
	if err != nil {
		return fmt.Errorf("insert similarity edges: %w", err)
	}
	return nil
}

// DeleteEdges removes every edge where id is the source or the target.
func (s *SimilarityStore) DeleteEdges(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM listing_similarities WHERE source_id = $1 OR target_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete similarity edges: %w", err)
	}
	return nil
}

// EdgesTouching returns every edge where id is the source or the target.
func (s *SimilarityStore) EdgesTouching(ctx context.Context, id uuid.UUID) ([]models.SimilarityEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, similarity, created_at
		FROM listing_similarities
		WHERE source_id = $1 OR target_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list similarity edges: %w", err)
	}
	defer rows.Close()

	var items []models.SimilarityEdge
	for rows.Next() {
		var e models.SimilarityEdge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Similarity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan similarity edge: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// SimilarTo returns the active targets of edges sourced at id whose
// similarity is at least min, most similar first.
func (s *SimilarityStore) SimilarTo(ctx context.Context, id uuid.UUID, min float64, limit, offset int) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.target_id
		FROM listing_similarities s
		JOIN listings l ON l.id = s.target_id
		WHERE s.source_id = $1
		  AND s.target_id <> $1
		  AND s.similarity >= $2
		  AND l.expires_at > NOW() AND l.closed_at IS NULL
		ORDER BY s.similarity DESC, s.target_id
		LIMIT $3 OFFSET $4
	`, id, min, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query similar listings: %w", err)
	}
	return scanScoreIDs(rows)
}

func scanScoreIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan similar listing: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FavoriteScores returns, for every active listing not owned by accountID,
// the average similarity between it and the given favorites. Listings with
// no edge to any favorite are absent.
func (s *SimilarityStore) FavoriteScores(ctx context.Context, favorites []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error) {
	if len(favorites) == 0 {
		return map[uuid.UUID]float64{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.target_id, AVG(s.similarity)
		FROM listing_similarities s
		JOIN listings l ON l.id = s.target_id
		WHERE s.source_id = ANY($1::uuid[])
		  AND l.account_id <> $2
		  AND l.expires_at > NOW() AND l.closed_at IS NULL
		GROUP BY s.target_id
	`, UUIDStrings(favorites), accountID)
	if err != nil {
		return nil, fmt.Errorf("query favorite scores: %w", err)
	}
	return scanScores(rows)
}

// CategoryScores returns, for every active listing not owned by accountID
// whose main category is one of categoryIDs, the average similarity over
// all of its edges.
func (s *SimilarityStore) CategoryScores(ctx context.Context, categoryIDs []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error) {
	if len(categoryIDs) == 0 {
		return map[uuid.UUID]float64{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.source_id, AVG(s.similarity)
		FROM listing_similarities s
		JOIN listings l ON l.id = s.source_id
		WHERE l.main_category_id = ANY($1::uuid[])
		  AND l.account_id <> $2
		  AND l.expires_at > NOW() AND l.closed_at IS NULL
		GROUP BY s.source_id
	`, UUIDStrings(categoryIDs), accountID)
	if err != nil {
		return nil, fmt.Errorf("query category scores: %w", err)
	}
	return scanScores(rows)
}

func scanScores(rows *sql.Rows) (map[uuid.UUID]float64, error) {
	defer rows.Close()

	scores := make(map[uuid.UUID]float64)
	for rows.Next() {
		var id uuid.UUID
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores[id] = score
	}
	return scores, rows.Err()
}
