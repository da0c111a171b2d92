// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

// defaultMistralModel is Mistral's general-purpose embedding model.
const defaultMistralModel = "mistral-embed"

// newMistral creates a new Mistral embedder. Mistral uses an
// OpenAI-compatible API at a different base URL.
func newMistral(cfg ProviderConfig) *openAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultMistralModel
	}
	p := newOpenAI(cfg)
	p.name = "mistral"
	return p
}
