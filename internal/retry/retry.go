// Package retry wraps asynchronous operations that may transiently fail with
// exponential backoff. It is the standard resilience primitive for simulated
// network calls; validation and precondition failures must never go through
// it (mark them with Permanent to stop retrying immediately).
package retry

import (
	"context"
	"errors"
	"time"
)

// Options controls retry behavior.
type Options struct {
	// MaxAttempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; each subsequent wait
	// doubles. Zero means no delay between attempts.
	BaseDelay time.Duration
}

// DefaultOptions matches the standard simulated-network posture: three
// attempts starting at 200ms.
var DefaultOptions = Options{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}

// permanentError wraps an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do returns it on first sight.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, the attempt budget is spent, the error is
// permanent, or ctx is cancelled. The last error seen is returned (unwrapped
// from its permanent marker, if any).
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	delay := opts.BaseDelay
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return lastErr
}
