package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy bounds a doubling backoff.
type Policy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// AcceptPolicy mirrors the delays net/http uses after temporary accept errors.
var AcceptPolicy = Policy{
	InitialBackoff: 5 * time.Millisecond,
	MaxBackoff:     1 * time.Second,
}

// Backoff yields doubling delays for consecutive failures of a long-running loop.
// It is not safe for concurrent use; each loop owns its own Backoff.
type Backoff struct {
	policy  Policy
	clock   clockwork.Clock
	current time.Duration
	failed  int
}

func NewBackoff(p Policy, clock clockwork.Clock) *Backoff {
	if p.InitialBackoff <= 0 {
		panic("retry: InitialBackoff must be positive")
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return &Backoff{policy: p, clock: clock}
}

// Next records a failure and returns how long to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	b.failed++
	if b.current == 0 {
		b.current = b.policy.InitialBackoff
	} else {
		b.current *= 2
	}
	if b.current > b.policy.MaxBackoff {
		b.current = b.policy.MaxBackoff
	}
	return b.current
}

// Reset records a success.
func (b *Backoff) Reset() {
	b.current = 0
	b.failed = 0
}

// Failures returns the number of consecutive failures since the last Reset.
func (b *Backoff) Failures() int {
	return b.failed
}

// Wait records a failure and sleeps for the resulting backoff, returning early
// when ctx is cancelled.
func (b *Backoff) Wait(ctx context.Context) error {
	timer := b.clock.NewTimer(b.Next())
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
	}
}
