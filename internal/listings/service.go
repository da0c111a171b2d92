// Package listings implements the listing lifecycle: create, update,
// delete, close, promote and renew, each keeping the vector bundle and the
// similarity edges of the listing current.
package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/currency"
	"bazaar/internal/database"
	"bazaar/internal/models"
	"bazaar/internal/similarity"
	"bazaar/internal/store"
	"bazaar/internal/validation"
	"bazaar/internal/vectors"
)

// DefaultActiveFor is how long a new or renewed listing stays active.
const DefaultActiveFor = 30 * 24 * time.Hour

var (
	ErrNotFound     = errors.New("listing not found")
	ErrForbidden    = errors.New("listing belongs to another account")
	ErrInvalidInput = errors.New("invalid listing")
)

// Categories resolves categories for vector generation and drops cached
// copies when categories change. cache.CategoryCache satisfies it.
type Categories interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// Input holds the owner-editable fields of a listing.
type Input struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Description    string    `json:"description" validate:"max=5000"`
	Price          float64   `json:"price" validate:"gte=0"`
	CurrencyCode   string    `json:"currencyCode" validate:"omitempty,len=3"`
	MainCategoryID uuid.UUID `json:"mainCategoryId"`
	SubCategoryID  uuid.UUID `json:"subCategoryId"`
	LocationName   string    `json:"locationName" validate:"required,max=120"`
	Latitude       float64   `json:"latitude" validate:"latitude"`
	Longitude      float64   `json:"longitude" validate:"longitude"`
}

// Service runs listing mutations. Every mutation that changes what a
// listing is scored on recomputes its similarity edges.
type Service struct {
	db         *sql.DB
	listings   *store.ListingStore
	categories Categories
	converter  currency.Converter
	generator  *vectors.Generator
	maintainer *similarity.Maintainer
	activeFor  time.Duration
	now        func() time.Time
}

// NewService creates a listing service. A zero activeFor means
// DefaultActiveFor.
func NewService(db *sql.DB, categories Categories, converter currency.Converter,
	generator *vectors.Generator, maintainer *similarity.Maintainer, activeFor time.Duration) *Service {
	if activeFor <= 0 {
		activeFor = DefaultActiveFor
	}
	return &Service{
		db:         db,
		listings:   store.NewListingStore(db),
		categories: categories,
		converter:  converter,
		generator:  generator,
		maintainer: maintainer,
		activeFor:  activeFor,
		now:        time.Now,
	}
}

// Get returns a listing by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

// owned loads a listing and checks that accountID owns it.
func (s *Service) owned(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.AccountID != accountID {
		return nil, ErrForbidden
	}
	return l, nil
}

// prepare validates in and applies it to l, resolving categories, the base
// price and the vector bundle.
func (s *Service) prepare(ctx context.Context, l *models.Listing, in Input) error {
	in.Title = strings.TrimSpace(in.Title)
	in.LocationName = strings.TrimSpace(in.LocationName)
	if verr := validation.Struct(in); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, verr)
	}

	main, err := s.categories.FindByID(ctx, in.MainCategoryID)
	if err != nil {
		return fmt.Errorf("load main category: %w", err)
	}
	if main == nil || !main.IsTopLevel() {
		return fmt.Errorf("%w: unknown main category %s", ErrInvalidInput, in.MainCategoryID)
	}
	sub, err := s.categories.FindByID(ctx, in.SubCategoryID)
	if err != nil {
		return fmt.Errorf("load sub category: %w", err)
	}
	if sub == nil || sub.ParentID == nil || *sub.ParentID != main.ID {
		return fmt.Errorf("%w: sub category %s is not under %s", ErrInvalidInput, in.SubCategoryID, main.Name)
	}

	base, err := s.converter.ToBase(ctx, in.Price, in.CurrencyCode)
	if errors.Is(err, currency.ErrUnknownCurrency) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return err
	}

	l.Title = in.Title
	l.Description = strings.TrimSpace(in.Description)
	l.Price = in.Price
	l.CurrencyCode = strings.ToUpper(in.CurrencyCode)
	l.BasePrice = base
	l.MainCategoryID = main.ID
	l.SubCategoryID = sub.ID
	l.LocationName = in.LocationName
	l.Latitude = in.Latitude
	l.Longitude = in.Longitude
	l.Vectors = s.generator.Generate(ctx, vectors.FieldsOf(l), main, sub)
	return nil
}

// Create stores a new listing for accountID and scores it against every
// active listing in the same transaction. If scoring fails nothing is
// stored.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, in Input) (*models.Listing, error) {
	l := &models.Listing{AccountID: accountID}
	if err := s.prepare(ctx, l, in); err != nil {
		return nil, err
	}
	l.ExpiresAt = s.now().Add(s.activeFor)

	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.attachLocation(ctx, tx, l); err != nil {
			return err
		}
		if err := s.listings.WithTx(tx).Create(ctx, l); err != nil {
			return err
		}
		return s.maintainer.Recompute(ctx, store.NewSimilarityStore(tx), l)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("listing created", "id", l.ID, "account_id", accountID, "title", l.Title)
	return l, nil
}

// Update rewrites the editable fields of a listing owned by accountID and
// rescores it in the same transaction.
func (s *Service) Update(ctx context.Context, id, accountID uuid.UUID, in Input) (*models.Listing, error) {
	l, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, l, in); err != nil {
		return nil, err
	}

	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.attachLocation(ctx, tx, l); err != nil {
			return err
		}
		if err := s.listings.WithTx(tx).Update(ctx, l); err != nil {
			return err
		}
		return s.maintainer.Recompute(ctx, store.NewSimilarityStore(tx), l)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("listing updated", "id", l.ID, "account_id", accountID)
	return l, nil
}

func (s *Service) attachLocation(ctx context.Context, tx *sql.Tx, l *models.Listing) error {
	loc, err := store.NewLocationStore(tx).Upsert(ctx, l.LocationName)
	if err != nil {
		return err
	}
	l.LocationID = loc.ID
	l.LocationName = loc.Name
	return nil
}

// Delete removes a listing owned by accountID together with its favorites
// and every similarity edge touching it.
func (s *Service) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	if _, err := s.owned(ctx, id, accountID); err != nil {
		return err
	}

	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.deleteInTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("listing deleted", "id", id, "account_id", accountID)
	return nil
}

func (s *Service) deleteInTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	if err := store.NewFavoriteStore(tx).DeleteForListing(ctx, id); err != nil {
		return err
	}
	if err := s.listings.WithTx(tx).Delete(ctx, id); err != nil {
		return err
	}
	return s.maintainer.Remove(ctx, store.NewSimilarityStore(tx), id)
}

// Close takes a listing out of the active set. Its edges are kept; reads
// skip inactive targets.
func (s *Service) Close(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error) {
	l, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	if l.ClosedAt != nil {
		return l, nil
	}

	now := s.now()
	if err := s.listings.Close(ctx, id, now); err != nil {
		return nil, err
	}
	l.ClosedAt = &now
	slog.Info("listing closed", "id", id)
	return l, nil
}

// Promote marks a listing as promoted now.
func (s *Service) Promote(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error) {
	l, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.listings.Promote(ctx, id, now); err != nil {
		return nil, err
	}
	l.PromotedAt = &now
	slog.Info("listing promoted", "id", id)
	return l, nil
}

// Renew extends the expiry of a listing and rescores it after the renewal
// is stored. A failed rescore is logged and does not undo the renewal.
func (s *Service) Renew(ctx context.Context, id, accountID uuid.UUID) (*models.Listing, error) {
	l, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	l.ExpiresAt = s.now().Add(s.activeFor)
	if err := s.listings.Renew(ctx, id, l.ExpiresAt); err != nil {
		return nil, err
	}
	s.maintainer.RecomputeDetached(ctx, l)

	slog.Info("listing renewed", "id", id, "expires_at", l.ExpiresAt)
	return l, nil
}

// CloseExpired closes every listing whose expiry has passed.
func (s *Service) CloseExpired(ctx context.Context) (int64, error) {
	n, err := s.listings.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("expired listings closed", "count", n)
	}
	return n, nil
}

// RebuildAll regenerates the vectors of every listing and rescores each
// one in its own transaction. Failures are logged per listing.
func (s *Service) RebuildAll(ctx context.Context) (int, error) {
	ids, err := s.listings.AllIDs(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		l, err := s.listings.FindByID(ctx, id)
		if err != nil {
			return done, err
		}
		if l == nil {
			continue
		}

		main, err := s.categories.FindByID(ctx, l.MainCategoryID)
		if err != nil {
			return done, err
		}
		sub, err := s.categories.FindByID(ctx, l.SubCategoryID)
		if err != nil {
			return done, err
		}

		l.Vectors = s.generator.Generate(ctx, vectors.FieldsOf(l), main, sub)
		if err := s.listings.UpdateVectors(ctx, l.ID, l.Vectors); err != nil {
			slog.Error("rebuild listing vectors failed", "id", l.ID, "error", err)
			continue
		}
		s.maintainer.RecomputeDetached(ctx, l)
		done++
	}

	slog.Info("listing vectors rebuilt", "count", done, "total", len(ids))
	return done, nil
}

// DeleteCategory removes a category, its sub-categories and every listing
// filed under any of them, in one transaction.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cats := store.NewCategoryStore(s.db)
	children, err := cats.Children(ctx, id)
	if err != nil {
		return err
	}

	removed := 0
	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		ids, err := s.listings.WithTx(tx).IDsInCategory(ctx, id)
		if err != nil {
			return err
		}
		for _, listingID := range ids {
			if err := s.deleteInTx(ctx, tx, listingID); err != nil {
				return err
			}
		}
		removed = len(ids)
		return cats.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.categories.Invalidate(ctx, id)
	for _, c := range children {
		s.categories.Invalidate(ctx, c.ID)
	}
	slog.Info("category deleted", "id", id, "sub_categories", len(children), "listings", removed)
	return nil
}
