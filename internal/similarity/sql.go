package similarity

import (
	"context"
	"database/sql"

	"bazaar/internal/database"
	"bazaar/internal/store"
)

var (
	_ EdgeStore  = (*store.SimilarityStore)(nil)
	_ EdgeReader = (*store.SimilarityStore)(nil)
	_ TxRunner   = (*SQLRunner)(nil)
)

// SQLRunner runs EdgeStore work in a PostgreSQL transaction.
type SQLRunner struct {
	db *sql.DB
}

// NewSQLRunner creates a SQLRunner over db.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// InTx implements TxRunner.
func (r *SQLRunner) InTx(ctx context.Context, fn func(EdgeStore) error) error {
	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(store.NewSimilarityStore(tx))
	})
}
