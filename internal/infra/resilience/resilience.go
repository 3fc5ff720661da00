// Package resilience provides fault-tolerance patterns for the store and the
// price oracle: retry with exponential backoff and circuit breaking.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying (4xx responses, decode errors).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops on Permanent errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker. Client errors (not found,
// validation, conflict) do not count as failures.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
}

func isClientError(err error) bool {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	return errors.As(err, &notFound) || errors.As(err, &validation) || errors.As(err, &conflict)
}

// Guard runs fn behind the breaker, retrying when retry is set, and maps
// the outcome onto domain errors: open breaker → ErrCircuitOpen, deadline →
// ErrTimeout, anything else not already a client error → ErrExternalService.
func Guard[T any](ctx context.Context, cb *gobreaker.CircuitBreaker, cfg Config, service string, retry bool, fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.Execute(func() (any, error) {
		if !retry {
			v, err := fn()
			out = v
			return nil, err
		}
		return nil, RetryWithBackoff(ctx, cfg, func() error {
			v, err := fn()
			out = v
			return err
		})
	})
	if err == nil {
		return out, nil
	}

	var zero T
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return zero, &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return zero, &domain.ErrTimeout{Operation: service}
	case isClientError(err):
		return zero, err
	default:
		return zero, &domain.ErrExternalService{Service: service, Err: err}
	}
}
