package supervisor

import (
	"context"
	"time"
)

// backoffStrategy is adapted near-verbatim from the teacher's
// proxy/backoff.go BackoffStrategy: doubling delay with a cap, reset
// back to initial on success. Here it governs restart delay after a
// supervisor loop panics or exits unexpectedly (spec.md §4.7: 1s, 2s,
// 4s, capped at 30s) rather than stream-reconnect backoff.
type backoffStrategy struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoffStrategy(initial, max time.Duration) *backoffStrategy {
	return &backoffStrategy{
		initial: initial,
		max:     max,
		current: initial,
	}
}

func (b *backoffStrategy) Next() time.Duration {
	if b.max == 0 {
		return b.initial
	}

	current := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return current
}

func (b *backoffStrategy) Sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(b.Next()):
	}
}

func (b *backoffStrategy) Reset() {
	if b.max > 0 {
		b.current = b.initial
	}
}
