// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

// CategoryStore manages categories and their embedding vectors.
type CategoryStore struct {
	db DBTX
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db DBTX) *CategoryStore {
	return &CategoryStore{db: db}
}

// WithTx returns a CategoryStore whose statements run inside tx.
func (s *CategoryStore) WithTx(tx *sql.Tx) *CategoryStore {
	return &CategoryStore{db: tx}
}

const categoryColumns = `id, name, parent_id, vector, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	var vec jsonVector
	err := scanner.Scan(&c.ID, &c.Name, &c.ParentID, &vec, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Vector = vec
	return &c, nil
}

// List returns all categories ordered by name, with active listing counts
// keyed on the main or sub category.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.parent_id, c.vector, c.created_at, c.updated_at,
		       COUNT(l.id) AS active_count
		FROM categories c
		LEFT JOIN listings l
		       ON (l.main_category_id = c.id OR l.sub_category_id = c.id)
		      AND l.expires_at > NOW() AND l.closed_at IS NULL
		GROUP BY c.id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var c models.Category
		var vec jsonVector
		err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &vec, &c.CreatedAt, &c.UpdatedAt, &c.ActiveCount)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Vector = vec
		items = append(items, c)
	}
	return items, rows.Err()
}

// Tree returns categories as a nested tree of top-level categories.
func (s *CategoryStore) Tree(ctx context.Context) ([]models.Category, error) {
	flat, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(flat, nil), nil
}

// BuildTree nests a flat category list under parentID.
func BuildTree(flat []models.Category, parentID *uuid.UUID) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Children = BuildTree(flat, &c.ID)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Children returns the direct sub-categories of parentID.
func (s *CategoryStore) Children(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 ORDER BY name`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, parent_id, vector)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns,
		c.Name, c.ParentID, jsonVector(c.Vector),
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// UpdateVector replaces the embedding of a category.
func (s *CategoryStore) UpdateVector(ctx context.Context, id uuid.UUID, vec []float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE categories SET vector = $2, updated_at = NOW() WHERE id = $1`, id, jsonVector(vec))
	if err != nil {
		return fmt.Errorf("update category vector: %w", err)
	}
	return nil
}

// Delete removes a category by ID. Sub-categories cascade; listings must be
// removed first.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
