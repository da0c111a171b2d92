package store

import (
	"context"
	"database/sql"
	"fmt"

	"bazaar/internal/models"
)

// LocationStore manages the named places listings are attached to.
type LocationStore struct {
	db DBTX
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(db DBTX) *LocationStore {
	return &LocationStore{db: db}
}

// WithTx returns a LocationStore whose statements run inside tx.
func (s *LocationStore) WithTx(tx *sql.Tx) *LocationStore {
	return &LocationStore{db: tx}
}

// Upsert returns the location with the given name, creating it if needed.
func (s *LocationStore) Upsert(ctx context.Context, name string) (*models.Location, error) {
	var l models.Location
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO locations (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, name).Scan(&l.ID, &l.Name)
	if err != nil {
		return nil, fmt.Errorf("upsert location: %w", err)
	}
	return &l, nil
}

// ListWithActiveCounts returns every location with the number of active
// listings attached to it, ordered by name.
func (s *LocationStore) ListWithActiveCounts(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT loc.id, loc.name, COUNT(l.id)
		FROM locations loc
		LEFT JOIN listings l
		       ON l.location_id = loc.id AND l.expires_at > NOW() AND l.closed_at IS NULL
		GROUP BY loc.id
		ORDER BY loc.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var items []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.ActiveCount); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
