// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"bazaar/internal/database"
	"bazaar/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "bazaar")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "bazaar")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// fixture is an isolated account with its own category pair and location.
// Everything it creates is removed when the test finishes.
type fixture struct {
	db       *sql.DB
	account  *models.Account
	main     *models.Category
	sub      *models.Category
	location *models.Location
	listings []uuid.UUID
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	f := &fixture{db: db}
	f.account = &models.Account{Name: "fixture-" + suffix}
	if err := NewAccountStore(db).Create(ctx, f.account); err != nil {
		t.Fatalf("create fixture account: %v", err)
	}

	cats := NewCategoryStore(db)
	var err error
	f.main, err = cats.Create(ctx, &models.Category{Name: "main-" + suffix, Vector: []float64{1, 0}})
	if err != nil {
		t.Fatalf("create fixture category: %v", err)
	}
	f.sub, err = cats.Create(ctx, &models.Category{Name: "sub-" + suffix, ParentID: &f.main.ID, Vector: []float64{0, 1}})
	if err != nil {
		t.Fatalf("create fixture sub-category: %v", err)
	}

	f.location, err = NewLocationStore(db).Upsert(ctx, "loc-"+suffix)
	if err != nil {
		t.Fatalf("create fixture location: %v", err)
	}

	t.Cleanup(func() {
		for _, id := range f.listings {
			db.Exec("DELETE FROM listing_similarities WHERE source_id = $1 OR target_id = $1", id)
		}
		db.Exec("DELETE FROM accounts WHERE id = $1", f.account.ID)
		db.Exec("DELETE FROM listings WHERE main_category_id = $1", f.main.ID)
		db.Exec("DELETE FROM categories WHERE id = $1", f.main.ID)
		db.Exec("DELETE FROM locations WHERE id = $1", f.location.ID)
	})
	return f
}

// addListing inserts an active listing owned by the fixture account. mutate
// may adjust any field before insertion.
func (f *fixture) addListing(t *testing.T, title string, mutate func(*models.Listing)) *models.Listing {
	t.Helper()
	l := &models.Listing{
		AccountID:      f.account.ID,
		LocationID:     f.location.ID,
		LocationName:   f.location.Name,
		Latitude:       44.4268,
		Longitude:      26.1025,
		MainCategoryID: f.main.ID,
		SubCategoryID:  f.sub.ID,
		Title:          title,
		Price:          20,
		BasePrice:      20,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
	if mutate != nil {
		mutate(l)
	}
	if err := NewListingStore(f.db).Create(context.Background(), l); err != nil {
		t.Fatalf("create listing %q: %v", title, err)
	}
	f.listings = append(f.listings, l.ID)
	return l
}
