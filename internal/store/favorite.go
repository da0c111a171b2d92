package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FavoriteStore records which listings an account has favorited.
type FavoriteStore struct {
	db DBTX
}

// NewFavoriteStore creates a new FavoriteStore.
func NewFavoriteStore(db DBTX) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// WithTx returns a FavoriteStore whose statements run inside tx.
func (s *FavoriteStore) WithTx(tx *sql.Tx) *FavoriteStore {
	return &FavoriteStore{db: tx}
}

// Add favorites a listing for an account. Adding twice is a no-op.
func (s *FavoriteStore) Add(ctx context.Context, accountID, listingID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (account_id, listing_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, accountID, listingID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove deletes one favorite.
func (s *FavoriteStore) Remove(ctx context.Context, accountID, listingID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE account_id = $1 AND listing_id = $2`, accountID, listingID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Find returns the listing ID of the (account, listing) favorite, or nil
// when the account has not favorited it.
func (s *FavoriteStore) Find(ctx context.Context, accountID, listingID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT listing_id FROM favorites WHERE account_id = $1 AND listing_id = $2`,
		accountID, listingID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find favorite: %w", err)
	}
	return &id, nil
}

// ListingIDs returns every listing the account has favorited, newest first.
func (s *FavoriteStore) ListingIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT listing_id FROM favorites WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteForListing removes every favorite of a listing.
func (s *FavoriteStore) DeleteForListing(ctx context.Context, listingID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE listing_id = $1`, listingID)
	if err != nil {
		return fmt.Errorf("delete listing favorites: %w", err)
	}
	return nil
}
