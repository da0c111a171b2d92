// Package vectors turns listing fields into the fixed set of named vectors
// the similarity engine scores.
package vectors

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
)

// TextEmbedder embeds free text. ai.Registry and HashingEmbedder both
// satisfy it.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fields are the listing attributes that feed the vector bundle.
type Fields struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
}

// FieldsOf extracts the vector inputs of a listing.
func FieldsOf(l *models.Listing) Fields {
	return Fields{
		Title:       l.Title,
		Description: l.Description,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
	}
}

// Generator builds vector bundles.
type Generator struct {
	embedder TextEmbedder
}

// NewGenerator creates a Generator that embeds text with embedder.
func NewGenerator(embedder TextEmbedder) *Generator {
	return &Generator{embedder: embedder}
}

// Build returns the vector bundle for a listing, or the first embedding
// error. A missing description leaves its vector nil, and a nil category
// leaves its vector nil.
func (g *Generator) Build(ctx context.Context, f Fields, main, sub *models.Category) (models.VectorBundle, error) {
	var b models.VectorBundle

	title, err := g.embedder.Embed(ctx, f.Title)
	if err != nil {
		return models.VectorBundle{}, fmt.Errorf("embed title: %w", err)
	}
	b.Title = title

	if f.Description != "" {
		desc, err := g.embedder.Embed(ctx, f.Description)
		if err != nil {
			return models.VectorBundle{}, fmt.Errorf("embed description: %w", err)
		}
		b.Description = desc
	}

	if main != nil {
		b.Category = slices.Clone(main.Vector)
	}
	if sub != nil {
		b.SubCategory = slices.Clone(sub.Vector)
	}
	b.Location = EncodeLocation(f.Latitude, f.Longitude)
	return b, nil
}

// Generate is Build without the error: on failure it logs and returns an
// empty bundle so the listing write can proceed.
func (g *Generator) Generate(ctx context.Context, f Fields, main, sub *models.Category) models.VectorBundle {
	b, err := g.Build(ctx, f, main, sub)
	if err != nil {
		metrics.EmbedFailures.Inc()
		slog.Warn("vector generation failed, using empty bundle", "error", err, "title", f.Title)
		return models.VectorBundle{}
	}
	return b
}
