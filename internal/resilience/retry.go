package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy holds configuration for retry logic
type RetryPolicy struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
	Jitter            bool          // Whether to add jitter to backoff
}

// DefaultRetryPolicy returns a default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context) error

// IsRetryableError decides whether an error is worth another attempt
type IsRetryableError func(error) bool

// OnRetry is invoked before each re-attempt, with the attempt number that failed
type OnRetry func(attempt int, err error)

// Do executes a function with retry logic. Backoff waits respect context
// cancellation; a cancelled context aborts immediately with the context error.
func (p *RetryPolicy) Do(ctx context.Context, fn RetryableFunc, isRetryable IsRetryableError, onRetry OnRetry) error {
	policy := p
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil // Success
		}

		lastErr = err

		// Check if error is retryable
		if isRetryable != nil && !isRetryable(err) {
			return err // Non-retryable error
		}

		// Don't sleep after the last attempt
		if attempt < policy.MaxAttempts-1 {
			if onRetry != nil {
				onRetry(attempt+1, err)
			}

			sleepDuration := backoff

			// Add jitter if enabled (up to 25% of backoff)
			if policy.Jitter {
				sleepDuration += time.Duration(rand.Float64() * 0.25 * float64(sleepDuration))
			}

			// Cap at max backoff
			if sleepDuration > policy.MaxBackoff {
				sleepDuration = policy.MaxBackoff
			}

			timer := time.NewTimer(sleepDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			// Increase backoff for next attempt
			backoff = time.Duration(float64(backoff) * policy.BackoffMultiplier)
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return lastErr
}
