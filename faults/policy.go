// Package faults simulates an unreliable backend in front of the collection
// stores: every call pays a latency toll and may be turned into a transient
// failure. Write failures are injected after the real mutation ran, so a
// call that "failed" can still have changed state. Clients exercising retry
// logic must tolerate exactly that.
package faults

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Op classifies a store call for the policy.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

// Policy decides how much latency and which failures a call receives.
// Implementations must be safe for concurrent use.
type Policy interface {
	// Delay returns how long the call should stall before proceeding.
	Delay(op Op) time.Duration
	// Fail returns a non-nil error when the call should be reported as
	// failed. For writes this runs after the underlying operation.
	Fail(op Op) error
}

// ErrInjected marks failures produced by a policy rather than the backend.
var ErrInjected = errors.New("injected fault")

// RandomPolicy injects uniform latency in [MinDelay, MaxDelay] and fails
// calls with a fixed independent probability per class.
type RandomPolicy struct {
	MinDelay      time.Duration
	MaxDelay      time.Duration
	ReadFailRate  float64
	WriteFailRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPolicy returns the default simulation: 100-400ms latency, 5%
// read and 12% write failure rates. nil rng means time-seeded.
func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomPolicy{
		MinDelay:      100 * time.Millisecond,
		MaxDelay:      400 * time.Millisecond,
		ReadFailRate:  0.05,
		WriteFailRate: 0.12,
		rng:           rng,
	}
}

func (p *RandomPolicy) Delay(Op) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	spread := p.MaxDelay - p.MinDelay
	if spread <= 0 {
		return p.MinDelay
	}
	return p.MinDelay + time.Duration(p.rng.Int63n(int64(spread)))
}

func (p *RandomPolicy) Fail(op Op) error {
	rate := p.ReadFailRate
	if op == OpWrite {
		rate = p.WriteFailRate
	}
	p.mu.Lock()
	roll := p.rng.Float64()
	p.mu.Unlock()
	if roll < rate {
		return ErrInjected
	}
	return nil
}

// None is the pass-through policy: no latency, no failures.
type None struct{}

func (None) Delay(Op) time.Duration { return 0 }
func (None) Fail(Op) error          { return nil }

// wait blocks for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
