package auth

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/config"
	"github.com/muurk/socketd/internal/logging"
)

// BreakerStore wraps a remote store with a circuit breaker. While open,
// lookups fail immediately and handshakes are rejected without waiting on
// an unreachable backend. Misses do not count as failures.
type BreakerStore struct {
	next TokenStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next.
func NewBreakerStore(name string, next TokenStore, cfg config.Breaker) *BreakerStore {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Token store circuit changed state",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Lookup delegates to the wrapped store unless the circuit is open.
func (b *BreakerStore) Lookup(ctx context.Context, token string) (*Identity, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Lookup(ctx, token)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.cb.Name(), err)
	}
	identity, _ := result.(*Identity)
	return identity, nil
}

// State reports the breaker state, for diagnostics.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// Close closes the wrapped store if it holds resources.
func (b *BreakerStore) Close() error {
	if c, ok := b.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
