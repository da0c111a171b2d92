package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
)

// DefaultPerPage is used when a caller asks for a non-positive page size.
const DefaultPerPage = 20

// EdgeReader reads the persisted similarity relation.
type EdgeReader interface {
	// SimilarTo returns active targets of edges sourced at id with
	// similarity >= min, most similar first.
	SimilarTo(ctx context.Context, id uuid.UUID, min float64, limit, offset int) ([]uuid.UUID, error)

	// FavoriteScores maps each active listing not owned by accountID to its
	// average similarity to favorites.
	FavoriteScores(ctx context.Context, favorites []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error)

	// CategoryScores maps each active listing not owned by accountID in one
	// of the main categories to its average similarity over all its edges.
	CategoryScores(ctx context.Context, categoryIDs []uuid.UUID, accountID uuid.UUID) (map[uuid.UUID]float64, error)
}

// ListingReader loads listings by ID, preserving the order of ids.
type ListingReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
}

// FavoriteReader lists the listings an account has favorited.
type FavoriteReader interface {
	ListingIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
}

// CategoryReader loads a category with its embedding. A missing category
// is (nil, nil).
type CategoryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// QueryEngine answers similarity reads. It holds no state beyond its
// collaborators and is safe for concurrent use.
type QueryEngine struct {
	edges      EdgeReader
	listings   ListingReader
	favorites  FavoriteReader
	categories CategoryReader
	now        func() time.Time
}

// NewQueryEngine creates a QueryEngine.
func NewQueryEngine(edges EdgeReader, listings ListingReader, favorites FavoriteReader, categories CategoryReader) *QueryEngine {
	return &QueryEngine{
		edges:      edges,
		listings:   listings,
		favorites:  favorites,
		categories: categories,
		now:        time.Now,
	}
}

func normalizePage(page, perPage int) (int, int) {
	if page < 0 {
		page = 0
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return page, perPage
}

// SimilarTo returns the page-th (zero-based) page of active listings most
// similar to listingID, never including listingID itself.
func (q *QueryEngine) SimilarTo(ctx context.Context, listingID uuid.UUID, page, perPage int) ([]models.Listing, error) {
	defer func(start time.Time) { metrics.RecordQuery("similar_to", time.Since(start)) }(time.Now())

	page, perPage = normalizePage(page, perPage)
	ids, err := q.edges.SimilarTo(ctx, listingID, MinSimilarity, perPage, page*perPage)
	if err != nil {
		return nil, fmt.Errorf("similar to: %w", err)
	}

	items, err := q.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("similar to: %w", err)
	}
	if items == nil {
		items = []models.Listing{}
	}
	return items, nil
}

type scored struct {
	listing models.Listing
	score   float64
}

// RecommendationsFor ranks listings not owned by account. Each candidate's
// score is its average similarity to the account's favorites (or, without
// favorites, its average similarity within the preferred main categories)
// plus CategoryWeight times the dot product of the account's first
// preferred category vector with the candidate's category vector.
// Candidates under MinSimilarity are dropped. An account with neither favorites nor
// preferred categories gets an empty list.
func (q *QueryEngine) RecommendationsFor(ctx context.Context, account *models.Account, page, perPage int) ([]models.Listing, error) {
	defer func(start time.Time) { metrics.RecordQuery("recommendations_for", time.Since(start)) }(time.Now())

	page, perPage = normalizePage(page, perPage)

	var favorites []uuid.UUID
	var preferred []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := q.favorites.ListingIDs(gctx, account.ID)
		if err != nil {
			return fmt.Errorf("load favorites: %w", err)
		}
		favorites = ids
		return nil
	})
	g.Go(func() error {
		for _, id := range account.PreferredCategoryIDs {
			c, err := q.categories.FindByID(gctx, id)
			if err != nil {
				return fmt.Errorf("load preferred category: %w", err)
			}
			if c != nil && len(c.Vector) > 0 {
				preferred = c.Vector
				break
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recommendations for: %w", err)
	}

	if len(favorites) == 0 && !account.HasPreferredCategories() {
		return []models.Listing{}, nil
	}

	var base map[uuid.UUID]float64
	var err error
	if len(favorites) > 0 {
		base, err = q.edges.FavoriteScores(ctx, favorites, account.ID)
	} else {
		base, err = q.edges.CategoryScores(ctx, account.PreferredCategoryIDs, account.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("recommendations for: %w", err)
	}
	if len(base) == 0 {
		return []models.Listing{}, nil
	}

	ids := make([]uuid.UUID, 0, len(base))
	for id := range base {
		ids = append(ids, id)
	}
	candidates, err := q.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("recommendations for: %w", err)
	}

	now := q.now()
	ranked := make([]scored, 0, len(candidates))
	for _, l := range candidates {
		if l.AccountID == account.ID || !l.IsActive(now) {
			continue
		}
		s := base[l.ID] + CategoryWeight*categoryAffinity(preferred, l.Vectors.Category)
		if s < MinSimilarity {
			continue
		}
		ranked = append(ranked, scored{listing: l, score: s})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].listing.ID.String() < ranked[j].listing.ID.String()
	})

	out := []models.Listing{}
	start := page * perPage
	if start >= len(ranked) {
		return out, nil
	}
	end := min(start+perPage, len(ranked))
	for _, r := range ranked[start:end] {
		out = append(out, r.listing)
	}
	return out, nil
}

// categoryAffinity is the dot product of the first preferred category
// vector with a candidate's category vector. Later preferences only widen
// the candidate set through CategoryScores.
func categoryAffinity(preferred, candidate []float64) float64 {
	if len(preferred) == 0 {
		return 0
	}
	return dot(preferred, candidate)
}
