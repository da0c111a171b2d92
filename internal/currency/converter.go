// Package currency converts listing prices into the base currency used by
// price filters.
package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"bazaar/internal/models"
)

// ErrUnknownCurrency is returned for codes without a stored rate.
var ErrUnknownCurrency = errors.New("unknown currency")

// Converter turns an amount in some currency into base units.
type Converter interface {
	ToBase(ctx context.Context, amount float64, code string) (float64, error)
}

// RateSource looks up the rate of a currency code. It returns nil, nil for
// unknown codes. *store.CurrencyStore satisfies it.
type RateSource interface {
	FindByCode(ctx context.Context, code string) (*models.Currency, error)
}

// StoreConverter converts using rates from a RateSource. An empty code is
// the base currency.
type StoreConverter struct {
	rates RateSource
}

// NewStoreConverter creates a converter reading rates from rates.
func NewStoreConverter(rates RateSource) *StoreConverter {
	return &StoreConverter{rates: rates}
}

// ToBase returns amount expressed in the base currency, rounded to cents.
func (c *StoreConverter) ToBase(ctx context.Context, amount float64, code string) (float64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return roundCents(amount), nil
	}

	cur, err := c.rates.FindByCode(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("load currency rate: %w", err)
	}
	if cur == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, strings.ToUpper(code))
	}
	return roundCents(amount * cur.RateToBase), nil
}

// Bounds converts optional min and max prices given in code.
func Bounds(ctx context.Context, c Converter, code string, min, max *float64) (*float64, *float64, error) {
	conv := func(v *float64) (*float64, error) {
		if v == nil {
			return nil, nil
		}
		out, err := c.ToBase(ctx, *v, code)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	lo, err := conv(min)
	if err != nil {
		return nil, nil, err
	}
	hi, err := conv(max)
	if err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
