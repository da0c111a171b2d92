package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

// AccountStore reads accounts and their preferred categories.
type AccountStore struct {
	db DBTX
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db DBTX) *AccountStore {
	return &AccountStore{db: db}
}

// FindByID returns an account by ID, or nil if not found.
func (s *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	var preferred string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, array_to_string(preferred_category_ids, ','), created_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &preferred, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by id: %w", err)
	}

	ids, err := parseUUIDList(preferred)
	if err != nil {
		return nil, fmt.Errorf("parse preferred categories: %w", err)
	}
	a.PreferredCategoryIDs = ids
	return &a, nil
}

func parseUUIDList(s string) ([]uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Create inserts an account and fills in its ID and CreatedAt.
func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (name, preferred_category_ids)
		VALUES ($1, $2::uuid[])
		RETURNING id, created_at
	`, a.Name, UUIDStrings(a.PreferredCategoryIDs)).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// SetPreferredCategories replaces the ordered preferred category list.
func (s *AccountStore) SetPreferredCategories(ctx context.Context, id uuid.UUID, categoryIDs []uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET preferred_category_ids = $2::uuid[], updated_at = NOW()
		WHERE id = $1
	`, id, UUIDStrings(categoryIDs))
	if err != nil {
		return fmt.Errorf("update preferred categories: %w", err)
	}
	return nil
}

// Delete removes an account together with its listings and favorites.
func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
