package converge

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
var ErrCircuitOpen = errors.New("converge circuit breaker is open")

// BreakerConfig configures the processor-call circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures int
	// CoolOff is how long the circuit stays open before probing again.
	CoolOff time.Duration
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		CoolOff:     30 * time.Second,
	}
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a consecutive-failure circuit breaker guarding the Converge
// endpoints. While open, calls fail immediately instead of queueing behind a
// processor outage; after the cool-off one probe request is let through.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    breakerState
	failures int
	probing  bool
	openedAt time.Time
}

// NewBreaker creates a Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg}
}

// Call runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Call(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if time.Since(b.openedAt) < b.cfg.CoolOff {
			return ErrCircuitOpen
		}
		b.state = breakerHalfOpen
		b.probing = true
		return nil
	case breakerHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return ErrCircuitOpen
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.probing = false
		if err != nil {
			b.open()
			return
		}
		b.state = breakerClosed
		b.failures = 0
		return
	}

	if err != nil {
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.open()
		}
		return
	}
	b.failures = 0
}

func (b *Breaker) open() {
	b.state = breakerOpen
	b.openedAt = time.Now()
	b.failures = 0
	b.probing = false
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == breakerOpen && time.Since(b.openedAt) < b.cfg.CoolOff
}
