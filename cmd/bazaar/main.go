// Package main is the entry point for the listing service. It loads
// configuration, connects to services, wires the similarity and search
// engines, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazaar/internal/ai"
	"bazaar/internal/cache"
	"bazaar/internal/config"
	"bazaar/internal/currency"
	"bazaar/internal/database"
	"bazaar/internal/handlers"
	"bazaar/internal/listings"
	"bazaar/internal/middleware"
	"bazaar/internal/router"
	"bazaar/internal/search"
	"bazaar/internal/similarity"
	"bazaar/internal/store"
	"bazaar/internal/vectors"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logs outside development.
	if !cfg.IsDev() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"embedder", cfg.Embedder,
	)

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

	// Category vectors always come from the local embedder so that they
	// stay comparable whichever provider embeds listing text.
	hashing := vectors.NewHashingEmbedder(cfg.EmbedDimension)

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db, hashing.Vector); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	registry := ai.NewRegistry(cfg.Embedder, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	if err := activateEmbedder(registry, cfg.Embedder, hashing); err != nil {
		slog.Error("failed to activate embedder", "error", err)
		os.Exit(1)
	}

	slog.Info("embedders initialized",
		"active", registry.ActiveName(),
		"available", registry.Available(),
	)

	categories := cache.NewCategoryCache(valkeyClient, store.NewCategoryStore(db), cfg.CategoryCacheTTL)
	converter := currency.NewStoreConverter(store.NewCurrencyStore(db))
	maintainer := similarity.NewMaintainer(similarity.NewSQLRunner(db))
	listingService := listings.NewService(db, categories, converter,
		vectors.NewGenerator(registry), maintainer, cfg.ListingActiveFor())

	queries := similarity.NewQueryEngine(
		store.NewSimilarityStore(db),
		store.NewListingStore(db),
		store.NewFavoriteStore(db),
		categories,
	)

	api := handlers.NewAPI(queries, search.NewEngine(db), listingService,
		store.NewAccountStore(db), store.NewCategoryStore(db), converter)

	writeLimiter := middleware.NewRateLimiter(30, time.Minute)
	defer writeLimiter.Stop()

	r := router.New(api, writeLimiter)

	// WriteTimeout must accommodate listing writes, which rescore every
	// active listing before responding.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	jobs, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go closeExpired(jobs, listingService, cfg.CloseExpiredInterval)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)
	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// closeExpired stamps expired listings as closed every interval until ctx
// is cancelled. A non-positive interval disables the job.
func closeExpired(ctx context.Context, svc *listings.Service, interval time.Duration) {
	if interval <= 0 {
		slog.Warn("close expired job disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.CloseExpired(ctx); err != nil {
				slog.Error("close expired listings failed", "error", err)
			}
		}
	}
}

// activateEmbedder registers local and makes want the active embedder,
// falling back to local when want is not configured.
func activateEmbedder(registry *ai.Registry, want string, local ai.Embedder) error {
	registry.Register(local.Name(), local)
	if registry.HasProvider(want) {
		return registry.SetActive(want)
	}
	slog.Warn("embedder not available, falling back to local", "embedder", want)
	if err := registry.SetActive(local.Name()); err != nil {
		return fmt.Errorf("activate local embedder: %w", err)
	}
	return nil
}
