package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// EmbedFunc turns a category name into its semantic vector.
type EmbedFunc func(text string) []float64

type seedCategory struct {
	name string
	subs []string
}

var seedCategories = []seedCategory{
	{"Electronics", []string{"Phones", "Laptops", "Audio", "Cameras"}},
	{"Home & Garden", []string{"Furniture", "Kitchen", "Garden tools"}},
	{"Vehicles", []string{"Cars", "Motorcycles", "Bicycles"}},
	{"Fashion", []string{"Clothing", "Shoes", "Accessories"}},
	{"Sports & Outdoors", []string{"Camping", "Fitness", "Water sports"}},
}

var seedCurrencies = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"RON": 0.22,
}

// Seed populates the database with initial development data: the category
// tree with embedded vectors and a handful of exchange rates. It does
// nothing when categories already exist.
func Seed(db *sql.DB, embed EmbedFunc) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	insertCategory := func(name string, parentID *string) (string, error) {
		vec, err := json.Marshal(embed(name))
		if err != nil {
			return "", fmt.Errorf("seed encode vector %q: %w", name, err)
		}
		var id string
		err = tx.QueryRow(
			"INSERT INTO categories (name, parent_id, vector) VALUES ($1, $2, $3) RETURNING id",
			name, parentID, string(vec),
		).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("seed insert category %q: %w", name, err)
		}
		return id, nil
	}

	for _, c := range seedCategories {
		parentID, err := insertCategory(c.name, nil)
		if err != nil {
			return err
		}
		for _, sub := range c.subs {
			if _, err := insertCategory(sub, &parentID); err != nil {
				return err
			}
		}
	}

	for code, rate := range seedCurrencies {
		_, err := tx.Exec(`
			INSERT INTO currencies (code, rate_to_base) VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING
		`, code, rate)
		if err != nil {
			return fmt.Errorf("seed insert currency %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded",
		"categories", len(seedCategories),
		"currencies", len(seedCurrencies),
	)
	return nil
}
