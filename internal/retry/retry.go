// Package retry provides the single retry/backoff combinator used by the
// DNS resolver and the WHOIS enricher; the URLScan, certificate
// transparency and HTTP probe enrichers make one attempt per call and do
// not use it. Spec §9 calls for consolidating the source's ad-hoc
// per-enricher retry wrappers into one policy; this is it.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy parameterizes a retry/backoff run.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	Timeout     time.Duration // per-attempt timeout; zero means no per-attempt deadline
	BackoffBase time.Duration // base delay; doubled each subsequent attempt
	// Retryable reports whether err should trigger another attempt. A nil
	// function retries on any non-nil error.
	Retryable func(err error) bool
}

// Do runs fn up to MaxAttempts times, honoring ctx cancellation and sleeping
// an exponential backoff (with small jitter) between attempts. It returns
// the last error if every attempt fails or ctx is cancelled first.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			return err
		}
		retryable := p.Retryable == nil || p.Retryable(err)
		if !retryable || attempt == attempts-1 {
			break
		}

		delay := p.backoffFor(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Policy) backoffFor(attempt int) time.Duration {
	base := p.BackoffBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	d := base << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	return d + jitter
}
