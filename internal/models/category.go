// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the two-level listing taxonomy. Top-level categories
// have no parent; sub-categories always reference a top-level parent.
// Vector is the persisted embedding used as the categorical similarity basis.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id"`
	Vector    []float64  `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	ActiveCount int        `json:"active_count"`
	Children    []Category `json:"children,omitempty"`
}

// IsTopLevel returns true for main categories.
func (c *Category) IsTopLevel() bool {
	return c.ParentID == nil
}
