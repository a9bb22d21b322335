// Package retry wraps transient persistence operations with bounded
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Option adjusts retry behavior. Production callers use the defaults;
// options exist so tests do not sleep for real seconds.
type Option func(*settings)

type settings struct {
	maxAttempts int
	baseDelay   time.Duration
	onRetry     func(attempt int, err error)
}

// WithMaxAttempts overrides the attempt bound.
func WithMaxAttempts(n int) Option {
	return func(s *settings) { s.maxAttempts = n }
}

// WithBaseDelay overrides the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(s *settings) { s.baseDelay = d }
}

// WithOnRetry registers a callback invoked after each failed attempt.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(s *settings) { s.onRetry = fn }
}

// Delays returns the backoff schedule for the given settings: base, 2*base,
// 4*base, doubling per failed attempt.
func Delays(base time.Duration, maxAttempts int) []time.Duration {
	delays := make([]time.Duration, 0, maxAttempts-1)
	for attempt := 1; attempt < maxAttempts; attempt++ {
		delays = append(delays, base<<(attempt-1))
	}
	return delays
}

// Do runs op up to three times with exponential backoff (1s, 2s, 4s by
// default), sleeping context-aware between attempts. After exhaustion the
// last error is wrapped with the operation name and attempt count.
func Do(ctx context.Context, name string, op func(ctx context.Context) error, opts ...Option) error {
	s := settings{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&s)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if s.onRetry != nil {
			s.onRetry(attempt, lastErr)
		}
		if attempt == s.maxAttempts {
			break
		}
		delay := s.baseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("operation %s canceled during backoff: %w", name, ctx.Err())
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", name, s.maxAttempts, lastErr)
}
