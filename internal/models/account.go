package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the read-only view of a marketplace account that the
// recommendation engine needs. Accounts are owned by the accounts service.
type Account struct {
	ID                   uuid.UUID   `json:"id"`
	Name                 string      `json:"name"`
	PreferredCategoryIDs []uuid.UUID `json:"preferred_category_ids"`
	CreatedAt            time.Time   `json:"created_at"`
}

// HasPreferredCategories returns true if the account picked any category.
func (a *Account) HasPreferredCategories() bool {
	return len(a.PreferredCategoryIDs) > 0
}
