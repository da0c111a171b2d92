package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/models"
)

// CurrencyStore reads and writes exchange rates to the base currency.
type CurrencyStore struct {
	db DBTX
}

// NewCurrencyStore creates a new CurrencyStore.
func NewCurrencyStore(db DBTX) *CurrencyStore {
	return &CurrencyStore{db: db}
}

// FindByCode returns the currency with the given ISO code, or nil if
// unknown.
func (s *CurrencyStore) FindByCode(ctx context.Context, code string) (*models.Currency, error) {
	var c models.Currency
	err := s.db.QueryRowContext(ctx,
		`SELECT code, rate_to_base FROM currencies WHERE code = $1`, strings.ToUpper(code),
	).Scan(&c.Code, &c.RateToBase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find currency: %w", err)
	}
	return &c, nil
}

// List returns every known currency ordered by code.
func (s *CurrencyStore) List(ctx context.Context) ([]models.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, rate_to_base FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var items []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.Code, &c.RateToBase); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Upsert inserts or updates a rate.
func (s *CurrencyStore) Upsert(ctx context.Context, c models.Currency) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO currencies (code, rate_to_base) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET rate_to_base = EXCLUDED.rate_to_base, updated_at = NOW()
	`, strings.ToUpper(c.Code), c.RateToBase)
	if err != nil {
		return fmt.Errorf("upsert currency: %w", err)
	}
	return nil
}
