package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// VectorBundle holds the named vectors derived from a listing. Each field is
// independently nil when the contributing input was absent or could not be
// embedded. It is persisted as a JSONB document.
type VectorBundle struct {
	Title       []float64 `json:"titleVector,omitempty"`
	Description []float64 `json:"descriptionVector,omitempty"`
	Category    []float64 `json:"categoryVector,omitempty"`
	SubCategory []float64 `json:"subCategoryVector,omitempty"`
	Location    []float64 `json:"locationVector,omitempty"`
}

// IsEmpty returns true when no vector is present.
func (b VectorBundle) IsEmpty() bool {
	return len(b.Title) == 0 && len(b.Description) == 0 && len(b.Category) == 0 &&
		len(b.SubCategory) == 0 && len(b.Location) == 0
}

// Value implements driver.Valuer so the bundle can be written to a JSONB column.
func (b VectorBundle) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal vector bundle: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner. NULL scans to an empty bundle.
func (b *VectorBundle) Scan(src any) error {
	*b = VectorBundle{}
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan vector bundle: unsupported type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, b); err != nil {
		return fmt.Errorf("unmarshal vector bundle: %w", err)
	}
	return nil
}
