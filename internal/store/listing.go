// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

// ListingStore handles CRUD operations on listings.
type ListingStore struct {
	db DBTX
}

// NewListingStore creates a new ListingStore.
func NewListingStore(db DBTX) *ListingStore {
	return &ListingStore{db: db}
}

// WithTx returns a ListingStore whose statements run inside tx.
func (s *ListingStore) WithTx(tx *sql.Tx) *ListingStore {
	return &ListingStore{db: tx}
}

// ListingColumns is the column list matched by ScanListing. Callers that
// alias the listings table prefix it themselves.
const ListingColumns = `id, account_id, location_id, location_name, latitude, longitude,
	main_category_id, sub_category_id, title, description, price, currency_code,
	base_price, vectors, promoted_at, expires_at, closed_at, created_at, updated_at`

// ScanListing scans a row selected with ListingColumns.
func ScanListing(scanner interface{ Scan(...any) error }) (*models.Listing, error) {
	var l models.Listing
	err := scanner.Scan(
		&l.ID, &l.AccountID, &l.LocationID, &l.LocationName, &l.Latitude, &l.Longitude,
		&l.MainCategoryID, &l.SubCategoryID, &l.Title, &l.Description, &l.Price, &l.CurrencyCode,
		&l.BasePrice, &l.Vectors, &l.PromotedAt, &l.ExpiresAt, &l.ClosedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ScanListings drains rows selected with ListingColumns.
func ScanListings(rows *sql.Rows) ([]models.Listing, error) {
	defer rows.Close()

	var items []models.Listing
	for rows.Next() {
		l, err := ScanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		items = append(items, *l)
	}
	return items, rows.Err()
}

// Create inserts a new listing. ID, CreatedAt and UpdatedAt are set from
// the database.
func (s *ListingStore) Create(ctx context.Context, l *models.Listing) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO listings (account_id, location_id, location_name, latitude, longitude,
			main_category_id, sub_category_id, title, description, price, currency_code,
			base_price, vectors, promoted_at, expires_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`, l.AccountID, l.LocationID, l.LocationName, l.Latitude, l.Longitude,
		l.MainCategoryID, l.SubCategoryID, l.Title, l.Description, l.Price, l.CurrencyCode,
		l.BasePrice, l.Vectors, l.PromotedAt, l.ExpiresAt, l.ClosedAt,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// Update writes the editable fields and the vector bundle of a listing.
func (s *ListingStore) Update(ctx context.Context, l *models.Listing) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE listings SET location_id = $2, location_name = $3, latitude = $4, longitude = $5,
			main_category_id = $6, sub_category_id = $7, title = $8, description = $9,
			price = $10, currency_code = $11, base_price = $12, vectors = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, l.ID, l.LocationID, l.LocationName, l.Latitude, l.Longitude,
		l.MainCategoryID, l.SubCategoryID, l.Title, l.Description,
		l.Price, l.CurrencyCode, l.BasePrice, l.Vectors,
	).Scan(&l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

// UpdateVectors replaces only the vector bundle of a listing.
func (s *ListingStore) UpdateVectors(ctx context.Context, id uuid.UUID, v models.VectorBundle) error {
	_, err := s.db.ExecContext(ctx, `UPDATE listings SET vectors = $2 WHERE id = $1`, id, v)
	if err != nil {
		return fmt.Errorf("update listing vectors: %w", err)
	}
	return nil
}

// FindByID returns a listing by ID, or nil if not found.
func (s *ListingStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := ScanListing(s.db.QueryRowContext(ctx,
		`SELECT `+ListingColumns+` FROM listings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find listing by id: %w", err)
	}
	return l, nil
}

// FindByIDs returns the listings with the given IDs in the order the IDs
// were given. Unknown IDs are skipped.
func (s *ListingStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ListingColumns+` FROM listings WHERE id = ANY($1::uuid[])`, UUIDStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("find listings by ids: %w", err)
	}
	found, err := ScanListings(rows)
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func orderByIDs(items []models.Listing, ids []uuid.UUID) []models.Listing {
	byID := make(map[uuid.UUID]models.Listing, len(items))
	for _, l := range items {
		byID[l.ID] = l
	}
	out := make([]models.Listing, 0, len(items))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// AllIDs returns the ID of every listing, oldest first.
func (s *ListingStore) AllIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.queryIDs(ctx, `SELECT id FROM listings ORDER BY created_at`)
}

// IDsInCategory returns listings whose main or sub category is categoryID.
func (s *ListingStore) IDsInCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	return s.queryIDs(ctx,
		`SELECT id FROM listings WHERE main_category_id = $1 OR sub_category_id = $1`, categoryID)
}

func (s *ListingStore) queryIDs(ctx context.Context, q string, args ...any) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query listing ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan listing id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a listing. Favorites referencing it cascade.
func (s *ListingStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

// Close marks a listing as closed at the given time.
func (s *ListingStore) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET closed_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("close listing: %w", err)
	}
	return nil
}

// Promote sets the promotion timestamp of a listing.
func (s *ListingStore) Promote(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET promoted_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("promote listing: %w", err)
	}
	return nil
}

// Renew moves the expiry of a listing.
func (s *ListingStore) Renew(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET expires_at = $2, updated_at = NOW() WHERE id = $1`,
		id, expiresAt)
	if err != nil {
		return fmt.Errorf("renew listing: %w", err)
	}
	return nil
}

// CloseExpired marks every expired listing that is still open as closed at
// the given time and returns how many were closed.
func (s *ListingStore) CloseExpired(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET closed_at = $1, updated_at = NOW() WHERE expires_at <= $1 AND closed_at IS NULL`, at)
	if err != nil {
		return 0, fmt.Errorf("close expired listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close expired listings: %w", err)
	}
	return n, nil
}
