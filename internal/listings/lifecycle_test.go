package listings

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"bazaar/internal/currency"
	"bazaar/internal/database"
	"bazaar/internal/models"
	"bazaar/internal/similarity"
	"bazaar/internal/store"
	"bazaar/internal/vectors"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB connects to the test database and runs migrations. The test is
// skipped if PostgreSQL is not available.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "postgres://" + envOr("POSTGRES_USER", "bazaar") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "bazaar") + "?sslmode=disable"
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// uncached adapts a CategoryStore to Categories.
type uncached struct {
	*store.CategoryStore
}

func (uncached) Invalidate(context.Context, uuid.UUID) {}

type env struct {
	db      *sql.DB
	svc     *Service
	owner   uuid.UUID
	phones  *models.Category
	iphones *models.Category
	home    *models.Category
	chairs  *models.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	embed := vectors.NewHashingEmbedder(vectors.DefaultDimension)

	e := &env{db: db}
	acc := &models.Account{Name: "lifecycle-" + suffix}
	if err := store.NewAccountStore(db).Create(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	e.owner = acc.ID

	cats := store.NewCategoryStore(db)
	mk := func(name string, parent *models.Category) *models.Category {
		c := &models.Category{Name: name + " " + suffix, Vector: embed.Vector(name)}
		if parent != nil {
			c.ParentID = &parent.ID
		}
		created, err := cats.Create(ctx, c)
		if err != nil {
			t.Fatalf("create category %s: %v", name, err)
		}
		return created
	}
	e.phones = mk("Electronics", nil)
	e.iphones = mk("Phones", e.phones)
	e.home = mk("Home & Garden", nil)
	e.chairs = mk("Furniture", e.home)

	gen := vectors.NewGenerator(embed)
	maint := similarity.NewMaintainer(similarity.NewSQLRunner(db))
	e.svc = NewService(db, uncached{cats}, currency.NewStoreConverter(store.NewCurrencyStore(db)),
		gen, maint, time.Hour)

	t.Cleanup(func() {
		db.Exec(`DELETE FROM listing_similarities WHERE source_id IN (SELECT id FROM listings WHERE account_id = $1)
			OR target_id IN (SELECT id FROM listings WHERE account_id = $1)`, e.owner)
		db.Exec("DELETE FROM listings WHERE account_id = $1", e.owner)
		db.Exec("DELETE FROM categories WHERE id = ANY($1::uuid[])",
			store.UUIDStrings([]uuid.UUID{e.phones.ID, e.home.ID}))
		db.Exec("DELETE FROM accounts WHERE id = $1", e.owner)
	})
	return e
}

func (e *env) phone(title string) Input {
	return Input{
		Title:          title,
		Price:          500,
		MainCategoryID: e.phones.ID,
		SubCategoryID:  e.iphones.ID,
		LocationName:   "Bucharest",
		Latitude:       44.4268,
		Longitude:      26.1025,
	}
}

func (e *env) edge(t *testing.T, src, tgt uuid.UUID) (float64, bool) {
	t.Helper()
	edges, err := store.NewSimilarityStore(e.db).EdgesTouching(context.Background(), src)
	if err != nil {
		t.Fatalf("EdgesTouching: %v", err)
	}
	for _, edge := range edges {
		if edge.SourceID == src && edge.TargetID == tgt {
			return edge.Similarity, true
		}
	}
	return 0, false
}

func TestServiceCreateScoresInline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	chair, err := e.svc.Create(ctx, e.owner, Input{
		Title:          "Wooden Chair",
		Price:          40,
		MainCategoryID: e.home.ID,
		SubCategoryID:  e.chairs.ID,
		LocationName:   "Bucharest",
		Latitude:       44.4268,
		Longitude:      26.1025,
	})
	if err != nil {
		t.Fatalf("Create chair: %v", err)
	}

	if !a.IsActive(time.Now()) || a.LocationID == uuid.Nil {
		t.Errorf("expected active listing with a location, got %+v", a)
	}

	ab, ok := e.edge(t, a.ID, b.ID)
	if !ok {
		t.Fatal("expected edge a->b")
	}
	ba, ok := e.edge(t, b.ID, a.ID)
	if !ok || ba != ab {
		t.Errorf("expected symmetric edge, got %v / %v", ab, ba)
	}
	if ab < similarity.MinSimilarity {
		t.Errorf("expected iPhones above threshold, got %v", ab)
	}

	ac, ok := e.edge(t, a.ID, chair.ID)
	if !ok {
		t.Fatal("expected edge a->chair (no write-time threshold)")
	}
	if ac >= similarity.MinSimilarity {
		t.Errorf("expected chair below threshold, got %v", ac)
	}
}

func TestServiceOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	l, err := e.svc.Create(ctx, e.owner, e.phone("Pixel 7"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stranger := uuid.New()
	if _, err := e.svc.Update(ctx, l.ID, stranger, e.phone("Pixel 8")); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update: expected ErrForbidden, got %v", err)
	}
	if err := e.svc.Delete(ctx, l.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete: expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.Close(ctx, uuid.New(), e.owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("Close: expected ErrNotFound, got %v", err)
	}
}

func TestServiceUpdateRescores(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	b, err := e.svc.Create(ctx, e.owner, e.phone("Samsung Galaxy"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before, _ := e.edge(t, a.ID, b.ID)

	updated, err := e.svc.Update(ctx, b.ID, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "iPhone 13 256GB" {
		t.Errorf("expected new title, got %q", updated.Title)
	}
	after, ok := e.edge(t, a.ID, b.ID)
	if !ok || after <= before {
		t.Errorf("expected higher similarity after update, before %v after %v", before, after)
	}
}

func TestServiceDeleteRemovesEdges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	b, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.NewFavoriteStore(e.db).Add(ctx, e.owner, b.ID); err != nil {
		t.Fatalf("Add favorite: %v", err)
	}

	if err := e.svc.Delete(ctx, b.ID, e.owner); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.svc.Get(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	edges, _ := store.NewSimilarityStore(e.db).EdgesTouching(ctx, b.ID)
	if len(edges) != 0 {
		t.Errorf("expected no edges touching deleted listing, got %d", len(edges))
	}
	if _, ok := e.edge(t, a.ID, b.ID); ok {
		t.Error("expected edge a->b to be gone")
	}
}

func TestServiceCloseKeepsEdges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	b, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	closed, err := e.svc.Close(ctx, b.ID, e.owner)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.IsActive(time.Now()) {
		t.Error("expected closed listing to be inactive")
	}
	if _, ok := e.edge(t, a.ID, b.ID); !ok {
		t.Error("expected edges to survive Close")
	}

	ids, err := store.NewSimilarityStore(e.db).SimilarTo(ctx, a.ID, similarity.MinSimilarity, 50, 0)
	if err != nil {
		t.Fatalf("SimilarTo: %v", err)
	}
	for _, id := range ids {
		if id == b.ID {
			t.Error("closed listing returned by SimilarTo")
		}
	}
}

func TestServicePromoteAndRenew(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	l, err := e.svc.Create(ctx, e.owner, e.phone("Pixel 7"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	promoted, err := e.svc.Promote(ctx, l.ID, e.owner)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted.IsPromoted() {
		t.Error("expected promoted listing")
	}

	e.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	renewed, err := e.svc.Renew(ctx, l.ID, e.owner)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !renewed.ExpiresAt.After(l.ExpiresAt) {
		t.Errorf("expected later expiry, got %v (was %v)", renewed.ExpiresAt, l.ExpiresAt)
	}

	got, _ := e.svc.Get(ctx, l.ID)
	if got.PromotedAt == nil || !got.ExpiresAt.After(l.ExpiresAt) {
		t.Errorf("renewal or promotion not stored: %+v", got)
	}
}

func TestServiceDeleteCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	b, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := e.svc.DeleteCategory(ctx, e.phones.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if _, err := e.svc.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected listing %s deleted, got %v", id, err)
		}
	}
	cats := store.NewCategoryStore(e.db)
	for _, id := range []uuid.UUID{e.phones.ID, e.iphones.ID} {
		c, err := cats.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if c != nil {
			t.Errorf("expected category %s deleted", c.Name)
		}
	}
}

func TestServiceRebuildAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 128GB"))
	b, err := e.svc.Create(ctx, e.owner, e.phone("iPhone 13 256GB"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Wipe the vectors and edges so the rebuild has to restore both.
	listingStore := store.NewListingStore(e.db)
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if err := listingStore.UpdateVectors(ctx, id, models.VectorBundle{}); err != nil {
			t.Fatalf("UpdateVectors: %v", err)
		}
		if err := store.NewSimilarityStore(e.db).DeleteEdges(ctx, id); err != nil {
			t.Fatalf("DeleteEdges: %v", err)
		}
	}

	n, err := e.svc.RebuildAll(ctx)
	if err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	if n < 2 {
		t.Errorf("expected at least 2 rebuilt listings, got %d", n)
	}

	got, _ := e.svc.Get(ctx, a.ID)
	if got.Vectors.IsEmpty() {
		t.Error("expected vectors restored")
	}
	if _, ok := e.edge(t, a.ID, b.ID); !ok {
		t.Error("expected edge a->b restored")
	}
}
