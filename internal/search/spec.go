// Package search implements the listing filter engine: the candidate query
// behind the listing feed, proximity search and the account and home page
// views.
package search

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"bazaar/internal/database/query"
	"bazaar/internal/store"
	"bazaar/internal/validation"
)

// Ordering options accepted by Spec.
const (
	OrderByCreatedAt = "createdAt"
	OrderByPrice     = "price"
	DirectionAsc     = "ASC"
	DirectionDesc    = "DESC"

	DefaultPerPage = 20
	MaxPerPage     = 100
)

var (
	// ErrInvalidSpec is returned when a filter spec fails validation. The
	// returned error also wraps the *validation.Error with field details.
	ErrInvalidSpec = errors.New("invalid filter spec")

	// ErrDistanceTooLarge is returned by CheckDistance for radii above
	// MaxProximityKm.
	ErrDistanceTooLarge = errors.New("max distance too large")
)

// activeClause matches listings that have not expired and were not closed.
const activeClause = "expires_at > NOW() AND closed_at IS NULL"

// Spec selects listings for the feed. Empty id sets and nil bounds do not
// narrow the result. MinPrice and MaxPrice are in the base currency.
type Spec struct {
	Categories        []uuid.UUID `json:"categories"`
	SubCategories     []uuid.UUID `json:"subCategories"`
	LocationIDs       []uuid.UUID `json:"locationIds"`
	ActiveOnly        bool        `json:"activeOnly"`
	PromotedOnly      bool        `json:"promotedOnly"`
	MinPrice          *float64    `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice          *float64    `json:"maxPrice" validate:"omitempty,gte=0"`
	Query             string      `json:"query" validate:"max=200"`
	AccountID         *uuid.UUID  `json:"accountId"`
	AccountIDToIgnore *uuid.UUID  `json:"accountIdToIgnore"`
	OrderBy           string      `json:"orderBy" validate:"omitempty,oneof=createdAt price"`
	OrderDirection    string      `json:"orderDirection" validate:"omitempty,oneof=ASC DESC"`
	GetCount          bool        `json:"getCount"`
	Page              int         `json:"page" validate:"gte=0"`
	PerPage           int         `json:"perPage" validate:"gte=0,lte=100"`
}

// Normalize validates the spec and fills in the default ordering and page
// size. Unknown orderBy or orderDirection values are rejected rather than
// replaced by defaults.
func (s Spec) Normalize() (Spec, error) {
	if verr := validation.Struct(s); verr != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSpec, verr)
	}
	if s.MinPrice != nil && s.MaxPrice != nil && *s.MinPrice > *s.MaxPrice {
		return s, fmt.Errorf("%w: minPrice is greater than maxPrice", ErrInvalidSpec)
	}

	if s.OrderBy == "" {
		s.OrderBy = OrderByCreatedAt
	}
	if s.OrderDirection == "" {
		s.OrderDirection = DirectionDesc
	}
	if s.PerPage == 0 {
		s.PerPage = DefaultPerPage
	}
	return s, nil
}

// Where renders the predicates of s. Callers may add further clauses
// before building.
func Where(s Spec) *query.WhereBuilder {
	wb := query.NewWhereBuilder()
	wb.AddAny("main_category_id", "uuid", store.UUIDStrings(s.Categories))
	wb.AddAny("sub_category_id", "uuid", store.UUIDStrings(s.SubCategories))
	wb.AddAny("location_id", "uuid", store.UUIDStrings(s.LocationIDs))
	if s.ActiveOnly {
		wb.AddClause(activeClause)
	}
	if s.PromotedOnly {
		wb.AddClause("promoted_at IS NOT NULL")
	}
	wb.AddRange("base_price", s.MinPrice, s.MaxPrice)
	if q := strings.TrimSpace(s.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		wb.AddClause("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if s.AccountID != nil {
		wb.AddClause("account_id = ?", *s.AccountID)
	}
	if s.AccountIDToIgnore != nil {
		wb.AddClause("account_id <> ?", *s.AccountIDToIgnore)
	}
	return wb
}

// escapeLike makes the LIKE wildcards in s match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// OrderClause returns the ORDER BY expression for a normalized spec.
// Newest-first ordering ranks promoted listings ahead of the rest.
func OrderClause(s Spec) string {
	column := "created_at"
	if s.OrderBy == OrderByPrice {
		column = "base_price"
	}
	dir := DirectionDesc
	if s.OrderDirection == DirectionAsc {
		dir = DirectionAsc
	}

	if column == "created_at" && dir == DirectionDesc {
		return "(promoted_at IS NOT NULL) DESC, promoted_at DESC NULLS LAST, created_at DESC, id"
	}
	return column + " " + dir + ", id"
}

// SelectSQL renders the page query for a normalized spec.
func SelectSQL(s Spec) (string, []any) {
	where, args := Where(s).Build(1)
	n := len(args)
	q := fmt.Sprintf("SELECT %s FROM listings WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		store.ListingColumns, where, OrderClause(s), n+1, n+2)
	return q, append(args, s.PerPage, s.Page*s.PerPage)
}

// CountSQL renders the count query for a spec.
func CountSQL(s Spec) (string, []any) {
	where, args := Where(s).Build(1)
	return "SELECT COUNT(*) FROM listings WHERE " + where, args
}

// MaxProximityKm is the largest radius accepted for proximity search.
const MaxProximityKm = 200

// CheckDistance validates a proximity radius at the caller boundary.
func CheckDistance(km float64) error {
	if km < 0 || math.IsNaN(km) {
		return fmt.Errorf("%w: max distance must be a non-negative number", ErrInvalidSpec)
	}
	if km > MaxProximityKm {
		return fmt.Errorf("%w: %.0f km exceeds %d km", ErrDistanceTooLarge, km, MaxProximityKm)
	}
	return nil
}
