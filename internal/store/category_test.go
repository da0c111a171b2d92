package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"bazaar/internal/models"
)

func TestCategoryStoreFindAndChildren(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	s := NewCategoryStore(db)
	ctx := context.Background()

	got, err := s.FindByID(ctx, f.main.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got == nil || !got.IsTopLevel() {
		t.Fatalf("expected top-level category, got %+v", got)
	}
	if len(got.Vector) != 2 || got.Vector[0] != 1 {
		t.Errorf("vector: got %v, want [1 0]", got.Vector)
	}

	children, err := s.Children(ctx, f.main.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 1 || children[0].ID != f.sub.ID {
		t.Errorf("children: got %+v", children)
	}

	missing, err := s.FindByID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("FindByID missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown category")
	}
}

func TestCategoryStoreUpdateVector(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	s := NewCategoryStore(db)
	ctx := context.Background()

	if err := s.UpdateVector(ctx, f.sub.ID, []float64{0.5, 0.5, 0.5}); err != nil {
		t.Fatalf("UpdateVector: %v", err)
	}
	got, _ := s.FindByID(ctx, f.sub.ID)
	if len(got.Vector) != 3 {
		t.Errorf("vector: got %v", got.Vector)
	}
}

func TestBuildTree(t *testing.T) {
	root := uuid.New()
	child := uuid.New()
	flat := []models.Category{
		{ID: child, Name: "Phones", ParentID: &root},
		{ID: root, Name: "Electronics"},
		{ID: uuid.New(), Name: "Tablets", ParentID: &root},
	}

	tree := BuildTree(flat, nil)
	if len(tree) != 1 {
		t.Fatalf("roots: got %d, want 1", len(tree))
	}
	if tree[0].ID != root {
		t.Errorf("root: got %s", tree[0].Name)
	}
	if len(tree[0].Children) != 2 {
		t.Errorf("children: got %d, want 2", len(tree[0].Children))
	}
}
