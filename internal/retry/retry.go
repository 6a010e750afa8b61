// Package retry implements a bounded exponential backoff combinator. It is
// pure control flow: it knows nothing about work items or page content.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation. MaxRetries is the total number of
// attempts; the wait before attempt n+1 is BaseDelay * 2^(n-1).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy mirrors the remote target's tolerances: three attempts with
// a two second base delay.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: 2 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Backoff returns the wait after the given 1-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// ExhaustedError reports that every attempt failed. It wraps the last error
// so callers can continue past a single bad unit instead of aborting.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op until it succeeds, the policy is exhausted, or ctx ends. op
// receives the 1-based attempt number so the caller can re-establish session
// state before a retry. A context error is returned as-is, not wrapped in
// ExhaustedError, so cancellation is distinguishable from remote failure.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	p = p.normalized()
	var last error
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx, attempt)
		if last == nil {
			return nil
		}
		if attempt < p.MaxRetries {
			if err := sleep(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return &ExhaustedError{Attempts: p.MaxRetries, Last: last}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
