package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/similarity"
)

type similarRequest struct {
	ListingID uuid.UUID `json:"listingId" validate:"required"`
	Page      int       `json:"page" validate:"gte=0"`
	PerPage   int       `json:"perPage" validate:"gte=0,lte=100"`
}

type pageRequest struct {
	Page    int `json:"page" validate:"gte=0"`
	PerPage int `json:"perPage" validate:"gte=0,lte=100"`
}

func perPageOrDefault(n int) int {
	if n == 0 {
		return similarity.DefaultPerPage
	}
	return n
}

// Similar returns the active listings most similar to a listing.
func (a *API) Similar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if !decode(w, r, &req) {
		return
	}

	req.PerPage = perPageOrDefault(req.PerPage)
	items, err := a.similarity.SimilarTo(r.Context(), req.ListingID, req.Page, req.PerPage)
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: items, Page: req.Page, PerPage: req.PerPage})
}

// Recommendations returns listings recommended for the calling account.
// The route requires an account; the body is optional.
func (a *API) Recommendations(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountFromCtx(r.Context())

	var req pageRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	account, err := a.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	req.PerPage = perPageOrDefault(req.PerPage)
	items, err := a.similarity.RecommendationsFor(r.Context(), account, req.Page, req.PerPage)
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: items, Page: req.Page, PerPage: req.PerPage})
}
