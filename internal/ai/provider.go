// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified interface over text embedding providers
// (a local hashing embedder, OpenAI, Mistral). Each provider implements the
// Embedder interface, and the Registry selects the active one by name.
package ai

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Embedder turns free text into a numeric vector.
type Embedder interface {
	// Embed returns the vector for text. Implementations must be safe for
	// concurrent use.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Name returns the provider identifier (e.g., "local", "openai").
	Name() string

	// Dimension returns the vector length, or 0 if it is only known after
	// the first successful call.
	Dimension() int
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Registry manages available embedders and selects the active one.
// It supports runtime switching by changing the active provider name.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Embedder
	active    string
}

// NewRegistry creates a registry and initialises a remote embedder for every
// config that has a non-empty API key. Providers without keys are silently
// skipped. Remote embedders are wrapped in a circuit breaker.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Embedder),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = withBreaker(newOpenAI(cfg))
		case "mistral":
			r.providers[name] = withBreaker(newMistral(cfg))
		}
	}

	return r
}

// Embed calls the active provider's Embed method.
func (r *Registry) Embed(ctx context.Context, text string) ([]float64, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

// Name returns the name of the active provider.
func (r *Registry) Name() string {
	return r.ActiveName()
}

// Dimension returns the dimension of the active provider, or 0 if none is
// configured.
func (r *Registry) Dimension() int {
	p, err := r.Active()
	if err != nil {
		return 0
	}
	return p.Dimension()
}

// Active returns the currently active provider.
func (r *Registry) Active() (Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no embedder configured for %q", r.active)
	}
	return p, nil
}

// SetActive switches the active provider at runtime. Returns an error if
// the named provider is not registered.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: embedder %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// Available returns the sorted names of all registered providers.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a provider in the registry. The local hashing
// embedder is registered this way at startup.
func (r *Registry) Register(name string, p Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
