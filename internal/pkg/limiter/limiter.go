// Package limiter provides the concurrency gate used in front of rate-limited
// providers: a bounded number of in-flight calls, each followed by a fixed
// pacing delay before its slot is handed back.
package limiter

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

type Pacer struct {
	sem  *semaphore.Weighted
	pace time.Duration
}

// NewPacer creates a gate admitting at most capacity concurrent calls.
// A zero pace disables the post-call delay (useful in tests).
func NewPacer(capacity int64, pace time.Duration) *Pacer {
	if capacity < 1 {
		capacity = 1
	}
	return &Pacer{
		sem:  semaphore.NewWeighted(capacity),
		pace: pace,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pacer) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release hands the slot back. When paced is true the configured delay is
// waited out first, so a burst of successful calls cannot exceed the provider
// rate even with no backoff in play.
func (p *Pacer) Release(ctx context.Context, paced bool) {
	if paced && p.pace > 0 {
		t := time.NewTimer(p.pace)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	p.sem.Release(1)
}
