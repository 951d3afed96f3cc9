// Package retry provides a bounded retry combinator shared by the
// audit ledger (fixed delay) and the LLM transport (exponential
// backoff). The last error is returned once attempts are exhausted.
package retry

import (
	"context"
	"time"
)

// DelayFunc returns the delay to sleep after a failed attempt.
// attempt is zero-based.
type DelayFunc func(attempt int) time.Duration

// Fixed returns the same delay after every failed attempt.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Exponential returns base × 2ⁿ for the nth failed attempt.
func Exponential(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

// Do runs op up to attempts times, sleeping delay(n) between failures.
// It stops early on success or when ctx is cancelled. The sleep after
// the final attempt is skipped.
func Do(ctx context.Context, attempts int, delay DelayFunc, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
