package geocode

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinDelay is the shortest allowed gap between two lookups.
const MinDelay = time.Second

// Limiter paces outgoing lookups. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// completer is implemented by limiters that measure the gap from the end
// of the previous lookup rather than its start.
type completer interface {
	Done()
}

// Pacer spaces lookups so that each one starts at least delay after the
// previous one started and after it finished.
type Pacer struct {
	lim   *rate.Limiter
	delay time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewLimiter returns a Pacer for delay. Delays below MinDelay are raised
// to it.
func NewLimiter(delay time.Duration) *Pacer {
	if delay < MinDelay {
		delay = MinDelay
	}
	return newPacer(delay)
}

func newPacer(delay time.Duration) *Pacer {
	return &Pacer{lim: rate.NewLimiter(rate.Every(delay), 1), delay: delay}
}

// Wait blocks until the next lookup may start.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.lim.Wait(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	wait := time.Until(p.last.Add(p.delay))
	p.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done records that a lookup finished.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
}

// Delay returns the configured gap.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Burst returns the underlying limiter's burst size.
func (p *Pacer) Burst() int {
	return p.lim.Burst()
}

type noLimit struct{}

func (noLimit) Wait(ctx context.Context) error { return ctx.Err() }

// NoLimit returns a Limiter that never waits. For tests and local mirrors.
func NoLimit() Limiter {
	return noLimit{}
}
