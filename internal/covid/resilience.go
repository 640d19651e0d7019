package covid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used when the service is built without WithBackoff.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 300 * time.Millisecond,
	MaxInterval:     3 * time.Second,
}

var (
	// ErrCircuitOpen is wrapped in a *TransportError when the breaker rejects a call.
	ErrCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// NewCircuitBreaker returns the breaker guarding calls to the provider.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// settled carries a non-retryable error through the breaker as a success, so
// a 404 or a malformed payload does not trip the circuit.
type settled struct {
	err error
}

// withResilience runs fn with retries, exponential backoff and a circuit breaker.
// Only errors for which IsRetryable is true are retried.
func withResilience[T any](
	ctx context.Context,
	op string,
	cfg BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return zero, errInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			v, execErr := fn(ctx)
			if execErr != nil && !IsRetryable(execErr) {
				return settled{err: execErr}, nil
			}
			if execErr != nil {
				return nil, execErr
			}
			return v, nil
		})

		if err == nil {
			if s, ok := result.(settled); ok {
				return zero, s.err
			}
			v, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("unexpected result type %T from circuit breaker", result)
			}
			return v, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &TransportError{Op: op, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
		}

		if attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.MaxInterval && cfg.MaxInterval > 0 {
			delay = cfg.MaxInterval
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying provider call")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
