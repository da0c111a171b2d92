package database

import (
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db, err := Connect(testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	embed := func(string) []float64 { return []float64{1, 0} }

	// Seed only writes into empty tables, so a second call must be a no-op.
	// Other test packages may share the database, so it is not cleared first.
	if err := Seed(db, embed); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(db, embed); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var catCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories WHERE parent_id IS NULL").Scan(&catCount); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if catCount < 1 {
		t.Errorf("expected at least 1 top-level category, got %d", catCount)
	}

	var usd float64
	if err := db.QueryRow("SELECT rate_to_base FROM currencies WHERE code = 'USD'").Scan(&usd); err != nil {
		t.Fatalf("select USD rate: %v", err)
	}
	if usd != 1.0 {
		t.Errorf("USD rate: got %v, want 1", usd)
	}
}
