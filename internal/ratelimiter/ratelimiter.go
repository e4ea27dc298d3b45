// Package ratelimiter throttles outbound metadata requests.
//
// A mount can be configured with a sustained request rate toward the
// metadata service; the limiter smooths bursts of VFS activity (a recursive
// stat storm, a parallel build scanning directories) into a rate the cluster
// operators have provisioned for.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies token bucket rate limiting to outbound requests.
//
// Tokens accumulate at a constant rate and each submitted request consumes
// one; burst capacity allows short spikes above the sustained rate. All
// methods are safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing requestsPerSecond sustained with the given
// burst capacity.
//
// A requestsPerSecond of 0 disables limiting (requests are never delayed).
func New(requestsPerSecond, burst uint) *Limiter {
	if requestsPerSecond == 0 {
		// Unlimited: a very large finite rate avoids rate.Inf edge cases.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed immediately, consuming a token
// if so. Use this when the caller prefers rejection over waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Reserve returns how long the caller would have to wait for a token without
// consuming one. Used for diagnostics only.
func (l *Limiter) Reserve() time.Duration {
	r := l.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}
