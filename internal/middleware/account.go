// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// AccountKey is the context key for the calling account ID.
	AccountKey contextKey = "account"

	// AccountHeader carries the caller's account ID. Authentication happens
	// upstream; this service trusts the gateway that sets it.
	AccountHeader = "X-Account-ID"
)

// LoadAccount reads the account ID header and stores it in the request
// context. It does not require the header; a malformed value is rejected
// with 400.
func LoadAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(AccountHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, AccountHeader+" must be a UUID")
			return
		}

		ctx := context.WithValue(r.Context(), AccountKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAccount returns 401 when no account ID was loaded.
// Must be applied after LoadAccount.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromCtx(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, AccountHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccountFromCtx returns the account ID loaded by LoadAccount.
func AccountFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(AccountKey).(uuid.UUID)
	return id, ok
}
