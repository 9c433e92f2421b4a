// Package governor bounds the number of outstanding calls to the rule
// service and spaces call starts by a global minimum interval.
package governor

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Default limits.
const (
	DefaultMaxConcurrent  = 5
	DefaultCallsPerSecond = 1.0
)

// Governor combines a counting admission gate with a minimum-interval
// throttle. The two gates are independent; Do waits on both.
type Governor struct {
	slots   *semaphore.Weighted
	limiter *rate.Limiter

	max      int64
	mu       sync.Mutex
	inFlight int64
	peak     int64

	// onGrant, when set, receives the scheduled time of each granted turn.
	onGrant func(time.Time)
}

// New creates a Governor admitting at most maxConcurrent calls at once and
// starting at most callsPerSecond calls per second. Non-positive values
// fall back to the defaults.
func New(maxConcurrent int, callsPerSecond float64) *Governor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if callsPerSecond <= 0 {
		callsPerSecond = DefaultCallsPerSecond
	}
	return &Governor{
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		max:     int64(maxConcurrent),
	}
}

// Interval returns the minimum spacing between call starts.
func (g *Governor) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(g.limiter.Limit()))
}

// MaxConcurrent returns the slot count.
func (g *Governor) MaxConcurrent() int {
	return int(g.max)
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Governor) Acquire(ctx context.Context) error {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return eris.Wrap(err, "governor: acquire slot")
	}
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Governor) Release() {
	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	g.slots.Release(1)
}

// AwaitTurn blocks until at least Interval has passed since the previous
// turn was granted, then records the grant. A turn abandoned because ctx is
// done is given back to the limiter.
func (g *Governor) AwaitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "governor: await turn")
	}
	now := time.Now()
	r := g.limiter.ReserveN(now, 1)
	if !r.OK() {
		return eris.New("governor: turn exceeds limiter burst")
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			r.Cancel()
			return eris.Wrap(ctx.Err(), "governor: await turn")
		case <-timer.C:
		}
	}
	if g.onGrant != nil {
		g.onGrant(now.Add(delay))
	}
	return nil
}

// Do runs fn once both a slot and a turn are available. The slot is held
// until fn returns.
func (g *Governor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()

	if err := g.AwaitTurn(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

// InFlight returns the number of slots currently held.
func (g *Governor) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.inFlight)
}

// Peak returns the highest number of slots held at once.
func (g *Governor) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.peak)
}
