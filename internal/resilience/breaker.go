// Package resilience guards calls to unreliable downstream services.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the state of a circuit breaker.
type State string

const (
	StateClosed   State = "CLOSED"    // calls pass through
	StateOpen     State = "OPEN"      // calls are rejected
	StateHalfOpen State = "HALF_OPEN" // one probe call is allowed
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the defaults used for the alert webhook.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         time.Minute,
	}
}

// Breaker stops calling a downstream after repeated failures and probes it
// again once the cooldown has passed.
type Breaker struct {
	name   string
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	rejected int64
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, config BreakerConfig) *Breaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn unless the circuit is open. A nil breaker runs fn directly.
// Context cancellation counts as neither success nor failure.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)

	switch {
	case err == nil:
		b.onSuccess()
	case ctx.Err() != nil:
		b.release()
	default:
		b.onFailure()
	}
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.rejected++
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			b.rejected++
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot for health reporting.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		Name:     b.name,
		State:    b.state,
		Failures: b.failures,
		Rejected: b.rejected,
	}
}

// BreakerStats holds circuit breaker statistics.
type BreakerStats struct {
	Name     string `json:"name"`
	State    State  `json:"state"`
	Failures int    `json:"failures"`
	Rejected int64  `json:"rejected"`
}
