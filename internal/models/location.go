package models

import "github.com/google/uuid"

// Location is a named place listings are attached to. ActiveCount is the
// number of active listings at the location when loaded by the store.
type Location struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ActiveCount int       `json:"active_count"`
}

// Currency carries the rate used to convert prices to the base currency.
type Currency struct {
	Code       string  `json:"code"`
	RateToBase float64 `json:"rate_to_base"`
}
