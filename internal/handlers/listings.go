package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bazaar/internal/currency"
	"bazaar/internal/listings"
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/search"
)

// filterRequest is a filter spec whose price bounds are given in
// CurrencyCode. An empty code means the bounds are already in the base
// currency.
type filterRequest struct {
	search.Spec
	CurrencyCode string `json:"currencyCode" validate:"omitempty,len=3"`
}

// spec returns the request's spec with price bounds in the base currency.
func (a *API) spec(r *http.Request, req filterRequest) (search.Spec, error) {
	spec := req.Spec
	lo, hi, err := currency.Bounds(r.Context(), a.converter, req.CurrencyCode, spec.MinPrice, spec.MaxPrice)
	if err != nil {
		return spec, err
	}
	spec.MinPrice, spec.MaxPrice = lo, hi
	return spec, nil
}

// Filter returns one page of the listing feed and the total match count.
func (a *API) Filter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	spec, err := a.spec(r, req)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := a.search.Filtered(r.Context(), spec)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Count returns the number of listings matching a filter spec.
func (a *API) Count(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	spec, err := a.spec(r, req)
	if err != nil {
		fail(w, r, err)
		return
	}

	n, err := a.search.Count(r.Context(), spec)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// Proximity returns active listings within maxDistance km of a point,
// nearest first. categoryId is "all" or a main category id.
func (a *API) Proximity(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		writeError(w, http.StatusBadRequest, "lat must be a number between -90 and 90")
		return
	}
	lng, err := strconv.ParseFloat(chi.URLParam(r, "lng"), 64)
	if err != nil || !(lng >= -180 && lng <= 180) {
		writeError(w, http.StatusBadRequest, "lng must be a number between -180 and 180")
		return
	}
	maxKm, err := strconv.ParseFloat(chi.URLParam(r, "maxDistance"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "maxDistance must be a number")
		return
	}
	if err := search.CheckDistance(maxKm); err != nil {
		fail(w, r, err)
		return
	}

	items, err := a.search.FindByProximity(r.Context(), lat, lng, chi.URLParam(r, "categoryId"), maxKm)
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": items})
}

// Latest returns the home page selection.
func (a *API) Latest(w http.ResponseWriter, r *http.Request) {
	items, err := a.search.Latest(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": items})
}

// Locations returns every location with its active listing count.
func (a *API) Locations(w http.ResponseWriter, r *http.Request) {
	locs, err := a.search.Locations(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if locs == nil {
		locs = []models.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

// Categories returns the category tree.
func (a *API) Categories(w http.ResponseWriter, r *http.Request) {
	tree, err := a.categories.Tree(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if tree == nil {
		tree = []models.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": tree})
}

// accountQuery reads the status, text and paging parameters of the
// account listing views.
func accountQuery(r *http.Request) (uuid.UUID, models.ListingStatus, search.Spec, error) {
	id, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		return uuid.Nil, "", search.Spec{}, fmt.Errorf("%w: accountId must be a UUID", search.ErrInvalidSpec)
	}

	q := r.URL.Query()
	status := models.ListingStatus(strings.ToLower(q.Get("status")))
	if status == "" {
		status = models.ListingStatusActive
	}
	spec := search.Spec{
		Query:          strings.TrimSpace(q.Get("q")),
		OrderBy:        q.Get("orderBy"),
		OrderDirection: strings.ToUpper(q.Get("orderDirection")),
	}
	if spec.Page, err = intParam(q, "page"); err != nil {
		return id, status, spec, err
	}
	if spec.PerPage, err = intParam(q, "perPage"); err != nil {
		return id, status, spec, err
	}
	return id, status, spec, nil
}

func intParam(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", search.ErrInvalidSpec, key)
	}
	return n, nil
}

// AccountListings returns one page of an account's listings filtered by
// status (active, closed or all).
func (a *API) AccountListings(w http.ResponseWriter, r *http.Request) {
	id, status, spec, err := accountQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	items, err := a.search.ForAccount(r.Context(), id, status, spec)
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	if spec.PerPage == 0 {
		spec.PerPage = search.DefaultPerPage
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: items, Page: spec.Page, PerPage: spec.PerPage})
}

// AccountListingsCount counts an account's listings by status.
func (a *API) AccountListingsCount(w http.ResponseWriter, r *http.Request) {
	id, status, spec, err := accountQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	n, err := a.search.CountForAccount(r.Context(), id, status, spec.Query)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// listingID parses the {id} route parameter. An id that is not a UUID
// cannot name a listing, so it is reported as not found.
func listingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, listings.ErrNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}

// GetListing returns a single listing.
func (a *API) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	l, err := a.listings.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CreateListing stores a listing for the calling account and scores it
// against the active corpus before responding.
func (a *API) CreateListing(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountFromCtx(r.Context())

	var in listings.Input
	if !decode(w, r, &in) {
		return
	}
	l, err := a.listings.Create(r.Context(), accountID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// UpdateListing replaces the editable fields of the caller's listing.
func (a *API) UpdateListing(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountFromCtx(r.Context())
	id, ok := listingID(w, r)
	if !ok {
		return
	}

	var in listings.Input
	if !decode(w, r, &in) {
		return
	}
	l, err := a.listings.Update(r.Context(), id, accountID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteListing removes the caller's listing with its favorites and
// similarity edges.
func (a *API) DeleteListing(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountFromCtx(r.Context())
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	if err := a.listings.Delete(r.Context(), id, accountID); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transition func(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error)

// apply runs a single-listing state change on behalf of the caller.
func apply(w http.ResponseWriter, r *http.Request, change transition) {
	accountID, _ := middleware.AccountFromCtx(r.Context())
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	l, err := change(r.Context(), id, accountID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CloseListing closes the caller's listing. It leaves every active view
// immediately.
func (a *API) CloseListing(w http.ResponseWriter, r *http.Request) {
	apply(w, r, a.listings.Close)
}

// PromoteListing marks the caller's listing as promoted.
func (a *API) PromoteListing(w http.ResponseWriter, r *http.Request) {
	apply(w, r, a.listings.Promote)
}

// RenewListing extends the caller's listing for another active period.
func (a *API) RenewListing(w http.ResponseWriter, r *http.Request) {
	apply(w, r, a.listings.Renew)
}
