// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus selects listings by lifecycle state in account views.
type ListingStatus string

const (
	ListingStatusActive ListingStatus = "active"
	ListingStatusClosed ListingStatus = "closed"
	ListingStatusAll    ListingStatus = "all"
)

// Listing is a marketplace item offered by an account. Vectors is derived
// from the title, description, categories and location and is rewritten on
// every create or update.
type Listing struct {
	ID             uuid.UUID    `json:"id"`
	AccountID      uuid.UUID    `json:"account_id"`
	LocationID     uuid.UUID    `json:"location_id"`
	LocationName   string       `json:"location_name"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	MainCategoryID uuid.UUID    `json:"main_category_id"`
	SubCategoryID  uuid.UUID    `json:"sub_category_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Price          float64      `json:"price"`
	CurrencyCode   string       `json:"currency_code"`
	BasePrice      float64      `json:"base_price"`
	Vectors        VectorBundle `json:"-"`
	PromotedAt     *time.Time   `json:"promoted_at,omitempty"`
	ExpiresAt      time.Time    `json:"expires_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsActive reports whether the listing has not expired and was not closed
// by its owner at the given instant.
func (l *Listing) IsActive(now time.Time) bool {
	return l.ExpiresAt.After(now) && l.ClosedAt == nil
}

// IsPromoted returns true if the listing was promoted at some point.
func (l *Listing) IsPromoted() bool {
	return l.PromotedAt != nil
}

// HasDescription returns true when the description carries any text.
// The description similarity component only counts for such listings.
func (l *Listing) HasDescription() bool {
	return l.Description != ""
}

// ListingVectors is the projection of a listing used by similarity scoring.
type ListingVectors struct {
	ID          uuid.UUID
	Description string
	Vectors     VectorBundle
}
