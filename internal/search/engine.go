package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/store"
)

// LatestCount is how many listings the home page shows.
const LatestCount = 12

// Result is a page of listings with the total number of matches. Listings
// is nil when only the count was requested.
type Result struct {
	Listings []models.Listing `json:"listings,omitempty"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"perPage"`
}

// Engine runs filter queries against the listings table.
type Engine struct {
	db        store.DBTX
	listings  *store.ListingStore
	locations *store.LocationStore
}

// NewEngine creates an Engine reading through db.
func NewEngine(db store.DBTX) *Engine {
	return &Engine{
		db:        db,
		listings:  store.NewListingStore(db),
		locations: store.NewLocationStore(db),
	}
}

// BuildCandidates runs spec. With GetCount set only Total is filled in;
// otherwise the requested page and the total are returned.
func (e *Engine) BuildCandidates(ctx context.Context, spec Spec) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("build_candidates", time.Since(start)) }()

	spec, err := spec.Normalize()
	if err != nil {
		return nil, err
	}

	total, err := e.count(ctx, spec)
	if err != nil {
		return nil, err
	}
	res := &Result{Total: total, Page: spec.Page, PerPage: spec.PerPage}
	if spec.GetCount {
		return res, nil
	}

	q, args := SelectSQL(spec)
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	res.Listings, err = store.ScanListings(rows)
	if err != nil {
		return nil, err
	}
	if res.Listings == nil {
		res.Listings = []models.Listing{}
	}
	return res, nil
}

// Filtered returns a page of listings for spec regardless of GetCount.
// This is what the listing feed serves.
func (e *Engine) Filtered(ctx context.Context, spec Spec) (*Result, error) {
	spec.GetCount = false
	return e.BuildCandidates(ctx, spec)
}

// Count returns the number of listings matching spec.
func (e *Engine) Count(ctx context.Context, spec Spec) (int, error) {
	spec.GetCount = true
	res, err := e.BuildCandidates(ctx, spec)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (e *Engine) count(ctx context.Context, spec Spec) (int, error) {
	q, args := CountSQL(spec)
	var n int
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

// Latest returns the home page selection. When more promoted listings are
// active than fit, a random sample of them is shown; otherwise active
// listings are shown promoted first.
func (e *Engine) Latest(ctx context.Context) ([]models.Listing, error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("latest", time.Since(start)) }()

	var promoted int
	err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE promoted_at IS NOT NULL AND `+activeClause,
	).Scan(&promoted)
	if err != nil {
		return nil, fmt.Errorf("count promoted listings: %w", err)
	}

	q := `SELECT ` + store.ListingColumns + ` FROM listings WHERE ` + activeClause + `
		ORDER BY (promoted_at IS NOT NULL) DESC, promoted_at DESC NULLS LAST, created_at DESC, id
		LIMIT $1`
	if promoted > LatestCount {
		q = `SELECT ` + store.ListingColumns + ` FROM listings
			WHERE promoted_at IS NOT NULL AND ` + activeClause + `
			ORDER BY RANDOM() LIMIT $1`
	}

	rows, err := e.db.QueryContext(ctx, q, LatestCount)
	if err != nil {
		return nil, fmt.Errorf("query latest listings: %w", err)
	}
	return store.ScanListings(rows)
}

func statusClause(status models.ListingStatus) (string, error) {
	switch status {
	case models.ListingStatusActive:
		return activeClause, nil
	case models.ListingStatusClosed:
		return "(expires_at <= NOW() OR closed_at IS NOT NULL)", nil
	case models.ListingStatusAll, "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidSpec, status)
	}
}

// ForAccount returns one page of an account's own listings in the given
// status. Only Query, ordering and paging are read from spec.
func (e *Engine) ForAccount(ctx context.Context, accountID uuid.UUID, status models.ListingStatus, spec Spec) ([]models.Listing, error) {
	spec = Spec{
		Query:          spec.Query,
		AccountID:      &accountID,
		OrderBy:        spec.OrderBy,
		OrderDirection: spec.OrderDirection,
		Page:           spec.Page,
		PerPage:        spec.PerPage,
	}
	spec, err := spec.Normalize()
	if err != nil {
		return nil, err
	}
	clause, err := statusClause(status)
	if err != nil {
		return nil, err
	}

	wb := Where(spec)
	if clause != "" {
		wb.AddClause(clause)
	}
	where, args := wb.Build(1)
	n := len(args)
	q := fmt.Sprintf("SELECT %s FROM listings WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		store.ListingColumns, where, OrderClause(spec), n+1, n+2)
	args = append(args, spec.PerPage, spec.Page*spec.PerPage)

	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query account listings: %w", err)
	}
	return store.ScanListings(rows)
}

// CountForAccount counts an account's listings in the given status,
// optionally restricted to those whose title or description contains text.
func (e *Engine) CountForAccount(ctx context.Context, accountID uuid.UUID, status models.ListingStatus, text string) (int, error) {
	clause, err := statusClause(status)
	if err != nil {
		return 0, err
	}
	wb := Where(Spec{Query: text, AccountID: &accountID})
	if clause != "" {
		wb.AddClause(clause)
	}
	where, args := wb.Build(1)

	var n int
	err = e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account listings: %w", err)
	}
	return n, nil
}

// Locations returns every location with its number of active listings.
func (e *Engine) Locations(ctx context.Context) ([]models.Location, error) {
	return e.locations.ListWithActiveCounts(ctx)
}
