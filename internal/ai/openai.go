package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	defaultOpenAIModel = "text-embedding-3-small"
	maxEmbedRetries    = 2
)

// openAIEmbedder implements the Embedder interface using the OpenAI
// embeddings API (POST /v1/embeddings). Ollama's native response shape is
// accepted as well, so a local Ollama server can stand in for OpenAI.
type openAIEmbedder struct {
	name      string
	config    ProviderConfig
	client    *http.Client
	dimension atomic.Int64
	backoff   time.Duration
}

// newOpenAI creates a new OpenAI embedder.
func newOpenAI(cfg ProviderConfig) *openAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &openAIEmbedder{
		name:    "openai",
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		backoff: 200 * time.Millisecond,
	}
}

func (p *openAIEmbedder) Name() string { return p.name }

func (p *openAIEmbedder) Dimension() int { return int(p.dimension.Load()) }

// Embed requests the embedding of text, retrying rate-limit and server
// errors with exponential backoff.
func (p *openAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= maxEmbedRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.retryDelay(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}

		vec, err := p.doEmbed(ctx, text)
		if err == nil {
			p.dimension.CompareAndSwap(0, int64(len(vec)))
			return vec, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryableError marks a failed call that may succeed on retry.
type retryableError struct {
	status     int
	retryAfter time.Duration
	err        error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (p *openAIEmbedder) retryDelay(attempt int, lastErr error) time.Duration {
	var re *retryableError
	if errors.As(lastErr, &re) && re.retryAfter > 0 {
		return re.retryAfter
	}
	d := p.backoff << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// doEmbed performs a single HTTP call to the embeddings endpoint.
// Shared between OpenAI and Mistral (same API format).
func (p *openAIEmbedder) doEmbed(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(embeddingRequest{Model: p.config.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", p.name, err)
	}

	url := p.config.BaseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", p.name, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%s http: %w", p.name, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%s read body: %w", p.name, err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		re := &retryableError{
			status: resp.StatusCode,
			err:    fmt.Errorf("%s API error (status %d): %s", p.name, resp.StatusCode, string(respBody)),
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			re.retryAfter = time.Duration(secs) * time.Second
		}
		return nil, re
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", p.name, resp.StatusCode, string(respBody))
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%s unmarshal: %w", p.name, err)
	}

	switch {
	case len(result.Data) > 0 && len(result.Data[0].Embedding) > 0:
		return result.Data[0].Embedding, nil
	case len(result.Embedding) > 0:
		return result.Embedding, nil
	}
	return nil, fmt.Errorf("%s: no embedding returned", p.name)
}

// --- OpenAI-compatible request/response types ---
// Used by both OpenAI and Mistral embedders.

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`

	// Ollama-native shape.
	Embedding []float64 `json:"embedding"`
}
