// Package router sets up all HTTP routes and middleware chains for the
// listing service. Reads are open; listing writes need an account and are
// rate limited per account.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. writes limits the mutating listing routes.
func New(api *handlers.API, writes *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIHeaders)
		r.Use(middleware.LoadAccount)

		r.Post("/similar", api.Similar)
		r.With(middleware.RequireAccount).Post("/recommendations", api.Recommendations)

		r.Get("/categories", api.Categories)
		r.Get("/locations", api.Locations)

		r.Route("/accounts/{accountId}/listings", func(r chi.Router) {
			r.Get("/", api.AccountListings)
			r.Get("/count", api.AccountListingsCount)
		})

		r.Route("/listings", func(r chi.Router) {
			r.Post("/filter", api.Filter)
			r.Post("/count", api.Count)
			r.Get("/latest", api.Latest)
			r.Get("/proximity/{lat}/{lng}/{categoryId}/{maxDistance}", api.Proximity)
			r.Get("/{id}", api.GetListing)

			// Writes rescore the active corpus inline.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAccount)
				r.Use(writes.Middleware)

				r.Post("/", api.CreateListing)
				r.Put("/{id}", api.UpdateListing)
				r.Delete("/{id}", api.DeleteListing)
				r.Post("/{id}/close", api.CloseListing)
				r.Post("/{id}/promote", api.PromoteListing)
				r.Post("/{id}/renew", api.RenewListing)
			})
		})
	})

	return r
}
