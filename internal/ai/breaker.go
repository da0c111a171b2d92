package ai

import (
	"context"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"bazaar/internal/metrics"
)

// breakerEmbedder guards a remote embedder with a circuit breaker. While the
// circuit is open calls fail fast with gobreaker.ErrOpenState.
type breakerEmbedder struct {
	inner Embedder
	cb    *gobreaker.CircuitBreaker[[]float64]
}

// consecutiveFailuresToTrip is the number of failed embeds that opens the
// circuit.
const consecutiveFailuresToTrip = 5

func withBreaker(inner Embedder) *breakerEmbedder {
	name := "embedder-" + inner.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("embedder circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
			metrics.EmbedderBreakerState.WithLabelValues(inner.Name()).Set(float64(to))
		},
	}
	return &breakerEmbedder{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[[]float64](settings),
	}
}

func (b *breakerEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return b.cb.Execute(func() ([]float64, error) {
		return b.inner.Embed(ctx, text)
	})
}

func (b *breakerEmbedder) Name() string { return b.inner.Name() }

func (b *breakerEmbedder) Dimension() int { return b.inner.Dimension() }
