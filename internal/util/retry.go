// ABOUTME: Retry utilities for external calls with per-attempt timeouts and backoff
// ABOUTME: Shared by the embedding, generation and vector index clients
package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy bounds how an external call is attempted
type Policy struct {
	// Attempts is the total number of tries, so 2 means one retry
	Attempts int
	// Timeout applies to each attempt; zero leaves the caller's deadline alone
	Timeout   time.Duration
	BaseDelay time.Duration
}

// DefaultPolicy is a 30s timeout with a single retry
func DefaultPolicy() Policy {
	return Policy{Attempts: 2, Timeout: 30 * time.Second, BaseDelay: 500 * time.Millisecond}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, returns a permanent error, or the policy runs out.
// The returned error wraps the last failure with the attempt number.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("attempt %d: %w", attempt, ctx.Err())
			case <-time.After(CalculateBackoff(p.BaseDelay, attempt)):
			}
		}

		err := runAttempt(ctx, p.Timeout, op)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second || backoff <= 0 {
		backoff = 30 * time.Second
	}
	// -25% to +25%
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}
