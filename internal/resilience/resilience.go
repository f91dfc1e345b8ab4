// Package resilience guards outbound calls to the chat platform with a
// circuit breaker and bounded retries with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen indicates the circuit breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Config tunes the breaker and the retry policy.
type Config struct {
	Name string

	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration

	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RandomFactor    float64
}

// DefaultConfig returns the policy used for outgoing chat messages.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxFailures:     5,
		OpenTimeout:     30 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		RandomFactor:    0.1,
	}
}

// CircuitBreaker wraps gobreaker with zap logging.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a breaker that opens after cfg.MaxFailures
// consecutive failures.
func NewCircuitBreaker(cfg Config, log *zap.Logger) *CircuitBreaker {
	maxFailures := uint32(max(cfg.MaxFailures, 1))

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the remote side.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs operation through the breaker.
func (b *CircuitBreaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, operation(ctx)
	})
	return err
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *CircuitBreaker) State() string {
	return b.cb.State().String()
}

// WithRetry runs operation until it succeeds, cfg.MaxAttempts is reached, ctx
// is done or the circuit is open.
func WithRetry(ctx context.Context, log *zap.Logger, cfg Config, operation func(context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	interval := cfg.InitialInterval

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		}
		if errors.Is(err, ErrCircuitOpen) || attempt == attempts {
			break
		}

		jitter := 1.0 + cfg.RandomFactor*(2*rand.Float64()-1)
		wait := time.Duration(float64(interval) * jitter)
		if cfg.MaxInterval > 0 && wait > cfg.MaxInterval {
			wait = cfg.MaxInterval
		}
		log.Debug("operation failed, retrying",
			zap.String("name", cfg.Name),
			zap.Int("attempt", attempt),
			zap.Duration("next_interval", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * cfg.Multiplier)
	}

	return lastErr
}
