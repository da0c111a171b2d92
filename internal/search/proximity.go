package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371

// AllCategories disables the category restriction of FindByProximity.
const AllCategories = "all"

// haversine distance in km from ($1, $2) to each row's coordinates. LEAST
// keeps rounding error from pushing the ASIN argument above 1.
var distanceExpr = fmt.Sprintf(`2 * %d * ASIN(LEAST(1, SQRT(
		POWER(SIN(RADIANS(latitude - $1::float8) / 2), 2) +
		COS(RADIANS($1::float8)) * COS(RADIANS(latitude)) *
		POWER(SIN(RADIANS(longitude - $2::float8) / 2), 2)
	)))`, EarthRadiusKm)

// ProximitySQL renders the proximity query. categoryID is AllCategories or
// a main category id.
func ProximitySQL(lat, lng, maxKm float64, categoryID string) (string, []any, error) {
	args := []any{lat, lng, maxKm}
	filter := ""
	if categoryID != AllCategories {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return "", nil, fmt.Errorf("%w: category must be %q or a UUID", ErrInvalidSpec, AllCategories)
		}
		filter = " AND main_category_id = $4"
		args = append(args, id)
	}

	q := `SELECT id FROM (
		SELECT id, ` + distanceExpr + ` AS distance
		FROM listings
		WHERE ` + activeClause + filter + `
	) d
	WHERE distance <= $3::float8
	ORDER BY distance, id`
	return q, args, nil
}

// FindByProximity returns the active listings within maxKm of (lat, lng),
// nearest first. Radius limits are enforced by callers through
// CheckDistance.
func (e *Engine) FindByProximity(ctx context.Context, lat, lng float64, categoryID string, maxKm float64) ([]models.Listing, error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("proximity", time.Since(start)) }()

	q, args, err := ProximitySQL(lat, lng, maxKm, categoryID)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query proximity: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan proximity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	listings, err := e.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}
