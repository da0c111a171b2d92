package similarity

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

var (
	_ EdgeStore      = (*MemoryStore)(nil)
	_ TxRunner       = (*MemoryStore)(nil)
	_ EdgeReader     = (*MemoryStore)(nil)
	_ ListingReader  = (*MemoryStore)(nil)
	_ FavoriteReader = (*MemoryStore)(nil)
	_ CategoryReader = (*MemoryStore)(nil)
)

type edgeKey struct {
	source, target uuid.UUID
}

// MemoryStore is an in-process implementation of every store interface in
// this package. Transactions are serialised; a failed one restores the
// edges it started with.
type MemoryStore struct {
	txMu sync.Mutex

	mu         sync.RWMutex
	listings   map[uuid.UUID]models.Listing
	categories map[uuid.UUID]models.Category
	favorites  map[uuid.UUID][]uuid.UUID
	edges      map[edgeKey]models.SimilarityEdge
	now        func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:   make(map[uuid.UUID]models.Listing),
		categories: make(map[uuid.UUID]models.Category),
		favorites:  make(map[uuid.UUID][]uuid.UUID),
		edges:      make(map[edgeKey]models.SimilarityEdge),
		now:        time.Now,
	}
}

// PutListing inserts or replaces a listing.
func (m *MemoryStore) PutListing(l models.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
}

// DeleteListing removes a listing and the favorites pointing at it.
func (m *MemoryStore) DeleteListing(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, id)
	for account, ids := range m.favorites {
		kept := ids[:0]
		for _, fid := range ids {
			if fid != id {
				kept = append(kept, fid)
			}
		}
		m.favorites[account] = kept
	}
}

// PutCategory inserts or replaces a category.
func (m *MemoryStore) PutCategory(c models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
}

// AddFavorite records that accountID favorited listingID.
func (m *MemoryStore) AddFavorite(accountID, listingID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[accountID] = append(m.favorites[accountID], listingID)
}

// EdgesTouching returns every edge where id is the source or the target.
func (m *MemoryStore) EdgesTouching(id uuid.UUID) []models.SimilarityEdge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.SimilarityEdge
	for k, e := range m.edges {
		if k.source == id || k.target == id {
			out = append(out, e)
		}
	}
	return out
}

// Edge returns the directed edge source->target, if stored.
func (m *MemoryStore) Edge(source, target uuid.UUID) (models.SimilarityEdge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[edgeKey{source, target}]
	return e, ok
}

// InTx implements TxRunner.
func (m *MemoryStore) InTx(ctx context.Context, fn func(EdgeStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := maps.Clone(m.edges)
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.edges = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// ActiveVectors implements EdgeStore.
func (m *MemoryStore) ActiveVectors(_ context.Context, exclude uuid.UUID) ([]models.ListingVectors, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var out []models.ListingVectors
	for _, l := range m.listings {
		if l.ID == exclude || !l.IsActive(now) {
			continue
		}
		out = append(out, models.ListingVectors{ID: l.ID, Description: l.Description, Vectors: l.Vectors})
	}
	return out, nil
}

// ReplaceEdges implements EdgeStore.
func (m *MemoryStore) ReplaceEdges(_ context.Context, id uuid.UUID, edges []models.SimilarityEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteEdgesLocked(id)
	for _, e := range edges {
		m.edges[edgeKey{e.SourceID, e.TargetID}] = e
	}
	return nil
}

// DeleteEdges implements EdgeStore.
func (m *MemoryStore) DeleteEdges(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEdgesLocked(id)
	return nil
}

func (m *MemoryStore) deleteEdgesLocked(id uuid.UUID) {
	for k := range m.edges {
		if k.source == id || k.target == id {
			delete(m.edges, k)
		}
	}
}

// SimilarTo implements EdgeReader.
func (m *MemoryStore) SimilarTo(_ context.Context, id uuid.UUID, min float64, limit, offset int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var hits []models.SimilarityEdge
	for k, e := range m.edges {
		if k.source != id || k.target == id || e.Similarity < min {
			continue
		}
		if t, ok := m.listings[k.target]; !ok || !t.IsActive(now) {
			continue
		}
		hits = append(hits, e)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].TargetID.String() < hits[j].TargetID.String()
	})

	if offset >= len(hits) {
		return nil, nil
	}
	hits = hits[offset:]
	if limit < len(hits) {
		hits = hits[:limit]
	}
	ids := make([]uuid.UUID, len(hits))
	for i, e := range hits {
		ids[i] = e.TargetID
	}
	return ids, nil
}

// candidateLocked reports whether id is an active listing not owned by
// accountID.
func (m *MemoryStore) candidateLocked(id, accountID uuid.UUID, now time.Time) (models.Listing, bool) {
	l, ok := m.listings[id]
	if !ok || l.AccountID == accountID || !l.IsActive(now) {
		return models.Listing{}, false
	}
	return l, true
}

// FavoriteScores implements EdgeReader.
func (m *MemoryStore) FavoriteScores(_ context.Context, favorites []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fav := make(map[uuid.UUID]bool, len(favorites))
	for _, id := range favorites {
		fav[id] = true
	}

	now := m.now()
	sums := make(map[uuid.UUID]float64)
	counts := make(map[uuid.UUID]int)
	for k, e := range m.edges {
		if !fav[k.source] {
			continue
		}
		if _, ok := m.candidateLocked(k.target, accountID, now); !ok {
			continue
		}
		sums[k.target] += e.Similarity
		counts[k.target]++
	}
	return averages(sums, counts), nil
}

// CategoryScores implements EdgeReader.
func (m *MemoryStore) CategoryScores(_ context.Context, categoryIDs []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cats := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		cats[id] = true
	}

	now := m.now()
	sums := make(map[uuid.UUID]float64)
	counts := make(map[uuid.UUID]int)
	for k, e := range m.edges {
		l, ok := m.candidateLocked(k.source, accountID, now)
		if !ok || !cats[l.MainCategoryID] {
			continue
		}
		sums[k.source] += e.Similarity
		counts[k.source]++
	}
	return averages(sums, counts), nil
}

func averages(sums map[uuid.UUID]float64, counts map[uuid.UUID]int) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(sums))
	for id, s := range sums {
		out[id] = s / float64(counts[id])
	}
	return out
}

// FindByIDs implements ListingReader.
func (m *MemoryStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Listing
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListingIDs implements FavoriteReader.
func (m *MemoryStore) ListingIDs(_ context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]uuid.UUID(nil), m.favorites[accountID]...), nil
}

// FindByID implements CategoryReader.
func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
