package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DBTX is the subset of *sql.DB and *sql.Tx the stores need. Binding a
// store to a *sql.Tx makes every statement it issues part of that
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UUIDStrings converts ids to their text form for "= ANY($n::uuid[])"
// parameters.
func UUIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// jsonVector stores a []float64 in a JSONB column.
type jsonVector []float64

func (v jsonVector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, fmt.Errorf("marshal vector: %w", err)
	}
	return string(data), nil
}

func (v *jsonVector) Scan(src any) error {
	*v = nil
	var data []byte
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("scan vector: unsupported type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	var out []float64
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal vector: %w", err)
	}
	if len(out) > 0 {
		*v = out
	}
	return nil
}
