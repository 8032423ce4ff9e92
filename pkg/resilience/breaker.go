// Package resilience provides a circuit breaker for calls to remote services.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/WessleyAI/dealer-reconcile/pkg/fn"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // tripped, reject calls
	StateHalfOpen              // allowing a trial call
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures the circuit breaker.
type BreakerOpts struct {
	// FailThreshold is how many consecutive failures trip the breaker.
	FailThreshold int
	// Timeout is how long the breaker stays open before entering half-open.
	Timeout time.Duration
	// HalfOpenMax is the number of trial calls allowed in half-open state.
	// Callers beyond it wait until the breaker closes or reopens.
	HalfOpenMax int
	// IsFailure decides whether an error counts against the remote service.
	// nil counts every error.
	IsFailure func(error) bool
}

// DefaultBreakerOpts provides the defaults for the status API.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 10,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker implements a circuit breaker with closed/open/half-open states.
type Breaker struct {
	mu            sync.Mutex
	opts          BreakerOpts
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCount int
	settled       chan struct{}    // closed when half-open resolves
	now           func() time.Time // for testing
}

// NewBreaker creates a circuit breaker, filling unset options from DefaultBreakerOpts.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerOpts.Timeout
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// currentState moves open to half-open once the timeout has elapsed. Must hold mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Timeout {
		b.state = StateHalfOpen
		b.halfOpenCount = 0
		b.settled = make(chan struct{})
	}
	return b.state
}

// setState changes state, releasing half-open waiters. Must hold mu.
func (b *Breaker) setState(s State) {
	if b.state == StateHalfOpen && s != StateHalfOpen && b.settled != nil {
		close(b.settled)
		b.settled = nil
	}
	b.state = s
}

// Do runs f through the breaker b. While half-open, calls past HalfOpenMax
// block until the trial calls settle the breaker or ctx is done.
func Do[T any](ctx context.Context, b *Breaker, f func(context.Context) fn.Result[T]) fn.Result[T] {
	if err := b.admit(ctx); err != nil {
		return fn.Err[T](err)
	}
	finished := false
	defer func() {
		if !finished {
			b.trip()
		}
	}()
	result := f(ctx)
	finished = true
	_, err := result.Unwrap()
	b.record(err)
	return result
}

func (b *Breaker) admit(ctx context.Context) error {
	for {
		b.mu.Lock()
		switch b.currentState() {
		case StateOpen:
			b.mu.Unlock()
			return ErrCircuitOpen
		case StateHalfOpen:
			if b.halfOpenCount < b.opts.HalfOpenMax {
				b.halfOpenCount++
				b.mu.Unlock()
				return nil
			}
			settled := b.settled
			b.mu.Unlock()
			select {
			case <-settled:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			b.mu.Unlock()
			return nil
		}
	}
}

func (b *Breaker) record(err error) {
	if err != nil && (b.opts.IsFailure == nil || b.opts.IsFailure(err)) {
		b.trip()
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
	}
	b.failures = 0
}

// trip counts one failure, opening the breaker at the threshold or when a
// half-open trial fails.
func (b *Breaker) trip() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
		b.setState(StateOpen)
		b.openedAt = b.now()
		b.failures = 0
		b.halfOpenCount = 0
	}
}
