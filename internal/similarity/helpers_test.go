package similarity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/models"
	"bazaar/internal/vectors"
)

// world is an in-memory universe of categories and listings whose vectors
// come from the real hashing embedder.
type world struct {
	t     *testing.T
	store *MemoryStore
	gen   *vectors.Generator
	cats  map[string]*models.Category
}

func newWorld(t *testing.T) *world {
	t.Helper()
	emb := vectors.NewHashingEmbedder(0)
	w := &world{
		t:     t,
		store: NewMemoryStore(),
		gen:   vectors.NewGenerator(emb),
		cats:  make(map[string]*models.Category),
	}
	for _, name := range []string{"Electronics", "Phones", "Home & Garden", "Furniture"} {
		c := &models.Category{ID: uuid.New(), Name: name, Vector: emb.Vector(name)}
		w.cats[name] = c
		w.store.PutCategory(*c)
	}
	return w
}

// listing builds and stores an active listing in main/sub categories.
func (w *world) listing(title, main, sub string, lat, lng float64, owner uuid.UUID) *models.Listing {
	w.t.Helper()
	l := &models.Listing{
		ID:             uuid.New(),
		AccountID:      owner,
		Title:          title,
		MainCategoryID: w.cats[main].ID,
		SubCategoryID:  w.cats[sub].ID,
		Latitude:       lat,
		Longitude:      lng,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
	b, err := w.gen.Build(context.Background(), vectors.FieldsOf(l), w.cats[main], w.cats[sub])
	if err != nil {
		w.t.Fatalf("build vectors for %q: %v", title, err)
	}
	l.Vectors = b
	w.store.PutListing(*l)
	return l
}

// recompute runs an inline recompute of l in its own memory transaction.
func (w *world) recompute(m *Maintainer, l *models.Listing) {
	w.t.Helper()
	err := w.store.InTx(context.Background(), func(es EdgeStore) error {
		return m.Recompute(context.Background(), es, l)
	})
	if err != nil {
		w.t.Fatalf("recompute %q: %v", l.Title, err)
	}
}
