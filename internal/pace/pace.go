// Package pace implements the fixed-delay pacer that spaces requests to the
// remote target. It deliberately holds no token-bucket state: the remote site
// is a single stateful session, so a constant floor between page loads is the
// whole contract.
package pace

import (
	"context"
	"time"
)

// Kind selects which delay a wait applies.
type Kind string

// Wait kinds. Steady paces every completed work item; PostError adds recovery
// headroom after a failed one, on top of the steady delay.
const (
	Steady    Kind = "steady"
	PostError Kind = "post_error"
)

// Pacer sleeps a fixed, kind-dependent delay, honoring context cancellation.
type Pacer struct {
	steady    time.Duration
	postError time.Duration
	observe   func(kind Kind, d time.Duration)
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithObserver registers a callback invoked after each completed wait,
// typically to feed a metrics histogram.
func WithObserver(fn func(kind Kind, d time.Duration)) Option {
	return func(p *Pacer) { p.observe = fn }
}

// New builds a Pacer with the two delay constants. Negative values are
// treated as zero.
func New(steady, postError time.Duration, opts ...Option) *Pacer {
	if steady < 0 {
		steady = 0
	}
	if postError < 0 {
		postError = 0
	}
	p := &Pacer{steady: steady, postError: postError}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the configured delay for the kind.
func (p *Pacer) Delay(kind Kind) time.Duration {
	if kind == PostError {
		return p.postError
	}
	return p.steady
}

// Wait blocks for the kind's delay or until ctx ends. The context error is
// returned so callers can stop pacing a cancelled run.
func (p *Pacer) Wait(ctx context.Context, kind Kind) error {
	d := p.Delay(kind)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if p.observe != nil {
		p.observe(kind, d)
	}
	return nil
}
