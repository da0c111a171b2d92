package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

func TestAccountStorePreferredCategories(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	s := NewAccountStore(db)
	ctx := context.Background()

	got, err := s.FindByID(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.HasPreferredCategories() {
		t.Errorf("new account preferred: got %v, want none", got.PreferredCategoryIDs)
	}

	want := []uuid.UUID{f.sub.ID, f.main.ID}
	if err := s.SetPreferredCategories(ctx, f.account.ID, want); err != nil {
		t.Fatalf("SetPreferredCategories: %v", err)
	}
	got, _ = s.FindByID(ctx, f.account.ID)
	if len(got.PreferredCategoryIDs) != 2 {
		t.Fatalf("preferred: got %v", got.PreferredCategoryIDs)
	}
	for i := range want {
		if got.PreferredCategoryIDs[i] != want[i] {
			t.Errorf("preferred[%d]: got %s, want %s", i, got.PreferredCategoryIDs[i], want[i])
		}
	}

	missing, err := s.FindByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("unknown account: got %v, %v", missing, err)
	}
}

func TestFavoriteStore(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	s := NewFavoriteStore(db)
	ctx := context.Background()

	a := f.addListing(t, "a", nil)
	b := f.addListing(t, "b", nil)

	for _, id := range []uuid.UUID{a.ID, b.ID, a.ID} {
		if err := s.Add(ctx, f.account.ID, id); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	ids, err := s.ListingIDs(ctx, f.account.ID)
	if err != nil {
		t.Fatalf("ListingIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("favorites: got %d, want 2", len(ids))
	}

	found, err := s.Find(ctx, f.account.ID, b.ID)
	if err != nil || found == nil || *found != b.ID {
		t.Errorf("Find: got %v, %v", found, err)
	}

	if err := s.DeleteForListing(ctx, b.ID); err != nil {
		t.Fatalf("DeleteForListing: %v", err)
	}
	found, _ = s.Find(ctx, f.account.ID, b.ID)
	if found != nil {
		t.Error("expected favorite to be removed")
	}
}

func TestCurrencyStore(t *testing.T) {
	db := testDB(t)
	s := NewCurrencyStore(db)
	ctx := context.Background()
	t.Cleanup(func() { db.Exec("DELETE FROM currencies WHERE code = 'TST'") })

	if err := s.Upsert(ctx, models.Currency{Code: "tst", RateToBase: 2.5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, models.Currency{Code: "TST", RateToBase: 3}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	c, err := s.FindByCode(ctx, "tst")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if c == nil || c.RateToBase != 3 {
		t.Errorf("currency: got %+v, want rate 3", c)
	}

	none, err := s.FindByCode(ctx, "ZZZ")
	if err != nil || none != nil {
		t.Errorf("unknown currency: got %v, %v", none, err)
	}
}

func TestLocationStore(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	s := NewLocationStore(db)
	ctx := context.Background()

	again, err := s.Upsert(ctx, f.location.Name)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if again.ID != f.location.ID {
		t.Errorf("upsert by name returned a new id: %s vs %s", again.ID, f.location.ID)
	}

	f.addListing(t, "active", nil)

	items, err := s.ListWithActiveCounts(ctx)
	if err != nil {
		t.Fatalf("ListWithActiveCounts: %v", err)
	}
	for _, l := range items {
		if l.ID == f.location.ID && l.ActiveCount != 1 {
			t.Errorf("active count: got %d, want 1", l.ActiveCount)
		}
	}
}
