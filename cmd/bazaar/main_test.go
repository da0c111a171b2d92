package main

import (
	"testing"

	"bazaar/internal/ai"
	"bazaar/internal/vectors"
)

func TestActivateEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		configs map[string]ai.ProviderConfig
		active  string
	}{
		{"local requested", "local", nil, "local"},
		{"remote without key falls back", "openai", map[string]ai.ProviderConfig{"openai": {}}, "local"},
		{"unknown falls back", "cohere", nil, "local"},
		{"remote with key", "openai", map[string]ai.ProviderConfig{"openai": {APIKey: "sk-test"}}, "openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := ai.NewRegistry(tt.want, tt.configs)
			if err := activateEmbedder(registry, tt.want, vectors.NewHashingEmbedder(8)); err != nil {
				t.Fatalf("activateEmbedder: %v", err)
			}
			if got := registry.ActiveName(); got != tt.active {
				t.Errorf("active: got %q, want %q", got, tt.active)
			}
		})
	}
}
