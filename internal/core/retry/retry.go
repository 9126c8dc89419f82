// Package retry wraps fallible calls to the model provider with bounded
// exponential backoff. It is applied per call, not per pipeline phase, so a
// transient failure in one step never discards the results of earlier steps.
package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Options controls backoff behavior. Attempt counting is zero-indexed: an
// operation failing MaxRetries+1 times is terminal.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffBase  float64
	Jitter       bool
	Retryable    func(error) bool
}

// DefaultOptions matches the provider's aggressive per-account rate limits:
// slow start, fast growth, long cap.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   6,
		InitialDelay: 3 * time.Second,
		MaxDelay:     120 * time.Second,
		BackoffBase:  2.5,
		Jitter:       true,
		Retryable:    IsThrottle,
	}
}

// IsThrottle classifies upstream rate-limiting and throttling signatures.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"throttl", "rate limit", "too many requests", "slowdown"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Do invokes op, retrying retryable failures with backoff
// min(initial * base^attempt, max) scaled by a 0.5+U(0,1) jitter factor.
// Non-retryable errors and exhausted retries return the last error.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	if opts.Retryable == nil {
		opts.Retryable = IsThrottle
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !opts.Retryable(err) || attempt == opts.MaxRetries {
			return zero, err
		}

		delay := time.Duration(math.Min(
			float64(opts.InitialDelay)*math.Pow(opts.BackoffBase, float64(attempt)),
			float64(opts.MaxDelay),
		))
		if opts.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", opts.MaxRetries).
			Dur("delay", delay).
			Msg("rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
