// Package main rebuilds the vector bundle and similarity edges of every
// listing. Run it after changing the embedder or the scoring weights.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bazaar/internal/ai"
	"bazaar/internal/cache"
	"bazaar/internal/config"
	"bazaar/internal/currency"
	"bazaar/internal/database"
	"bazaar/internal/listings"
	"bazaar/internal/similarity"
	"bazaar/internal/store"
	"bazaar/internal/vectors"
)

func main() {
	embedder := flag.String("embedder", "", "embedder to use (defaults to EMBEDDER)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *embedder != "" {
		cfg.Embedder = *embedder
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	hashing := vectors.NewHashingEmbedder(cfg.EmbedDimension)
	registry := ai.NewRegistry(cfg.Embedder, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	registry.Register(hashing.Name(), hashing)
	if err := registry.SetActive(cfg.Embedder); err != nil {
		slog.Error("embedder not available", "embedder", cfg.Embedder, "error", err)
		os.Exit(1)
	}

	categories := cache.NewCategoryCache(valkeyClient, store.NewCategoryStore(db), cfg.CategoryCacheTTL)
	svc := listings.NewService(db, categories,
		currency.NewStoreConverter(store.NewCurrencyStore(db)),
		vectors.NewGenerator(registry),
		similarity.NewMaintainer(similarity.NewSQLRunner(db)),
		cfg.ListingActiveFor(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := svc.RebuildAll(ctx)
	if err != nil {
		slog.Error("backfill stopped", "rebuilt", n, "error", err)
		os.Exit(1)
	}
	slog.Info("backfill finished", "rebuilt", n, "embedder", registry.ActiveName())
}
