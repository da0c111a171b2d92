// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of the listing service.
// Handlers decode and validate requests, call the similarity, search and
// listing services, and map their errors to status codes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"bazaar/internal/currency"
	"bazaar/internal/listings"
	"bazaar/internal/models"
	"bazaar/internal/search"
	"bazaar/internal/validation"
)

// maxBodyBytes caps request bodies. Listing descriptions are the largest
// field and stay well under this.
const maxBodyBytes = 1 << 20

// Similarity answers "more like this" and recommendation queries.
// similarity.QueryEngine satisfies it.
type Similarity interface {
	SimilarTo(ctx context.Context, listingID uuid.UUID, page, perPage int) ([]models.Listing, error)
	RecommendationsFor(ctx context.Context, account *models.Account, page, perPage int) ([]models.Listing, error)
}

// Search runs filter, proximity and browsing queries. search.Engine
// satisfies it.
type Search interface {
	Filtered(ctx context.Context, spec search.Spec) (*search.Result, error)
	Count(ctx context.Context, spec search.Spec) (int, error)
	FindByProximity(ctx context.Context, lat, lng float64, categoryID string, maxKm float64) ([]models.Listing, error)
	Latest(ctx context.Context) ([]models.Listing, error)
	Locations(ctx context.Context) ([]models.Location, error)
	ForAccount(ctx context.Context, accountID uuid.UUID, status models.ListingStatus, spec search.Spec) ([]models.Listing, error)
	CountForAccount(ctx context.Context, accountID uuid.UUID, status models.ListingStatus, text string) (int, error)
}

// Listings runs listing mutations. listings.Service satisfies it.
type Listings interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Create(ctx context.Context, accountID uuid.UUID, in listings.Input) (*models.Listing, error)
	Update(ctx context.Context, id, accountID uuid.UUID, in listings.Input) (*models.Listing, error)
	Delete(ctx context.Context, id, accountID uuid.UUID) error
	Close(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error)
	Promote(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error)
	Renew(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error)
}

// Accounts loads the account view used for recommendations.
type Accounts interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Categories returns the category tree.
type Categories interface {
	Tree(ctx context.Context) ([]models.Category, error)
}

// API groups the JSON handlers and their dependencies.
type API struct {
	similarity Similarity
	search     Search
	listings   Listings
	accounts   Accounts
	categories Categories
	converter  currency.Converter
}

// NewAPI creates the handler group.
func NewAPI(sim Similarity, srch Search, lst Listings, accounts Accounts, categories Categories, converter currency.Converter) *API {
	return &API{
		similarity: sim,
		search:     srch,
		listings:   lst,
		accounts:   accounts,
		categories: categories,
		converter:  converter,
	}
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type listingsResponse struct {
	Listings []models.Listing `json:"listings"`
	Page     int              `json:"page"`
	PerPage  int              `json:"perPage"`
}

type countResponse struct {
	Count int `json:"count"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into dst and validates it. Unknown fields are
// rejected so typos in filter names do not silently widen a query.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if verr := validation.Struct(dst); verr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return false
	}
	return true
}

// fail maps service errors to responses. Unexpected errors are logged and
// hidden behind a 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, listings.ErrInvalidInput),
		errors.Is(err, search.ErrInvalidSpec),
		errors.Is(err, search.ErrDistanceTooLarge),
		errors.Is(err, currency.ErrUnknownCurrency):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, listings.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, listings.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
