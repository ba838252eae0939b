package pipeline

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is wrapped in the FetchError returned while a host's breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the state of one host's breaker
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type hostBreaker struct {
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// Breakers holds one circuit breaker per host. After threshold consecutive
// failures the host is refused for openTimeout; then a single probe is let
// through and its outcome closes or reopens the circuit.
type Breakers struct {
	mu          sync.Mutex
	hosts       map[string]*hostBreaker
	threshold   int
	openTimeout time.Duration
	now         func() time.Time
}

// NewBreakers creates a per-host breaker set
func NewBreakers(threshold int, openTimeout time.Duration) *Breakers {
	if threshold <= 0 {
		threshold = 5
	}
	if openTimeout <= 0 {
		openTimeout = time.Minute
	}
	return &Breakers{
		hosts:       make(map[string]*hostBreaker),
		threshold:   threshold,
		openTimeout: openTimeout,
		now:         time.Now,
	}
}

// Allow reports whether a request to host may proceed
func (b *Breakers) Allow(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb := b.get(host)
	switch hb.state {
	case BreakerOpen:
		if b.now().Sub(hb.openedAt) < b.openTimeout {
			return false
		}
		hb.state = BreakerHalfOpen
		hb.probing = true
		return true
	case BreakerHalfOpen:
		if hb.probing {
			return false
		}
		hb.probing = true
		return true
	}
	return true
}

// Success records a healthy response from host
func (b *Breakers) Success(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb := b.get(host)
	hb.state = BreakerClosed
	hb.failures = 0
	hb.probing = false
}

// Failure records a failed request to host
func (b *Breakers) Failure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb := b.get(host)
	hb.failures++
	hb.probing = false
	if hb.state == BreakerHalfOpen || hb.failures >= b.threshold {
		hb.state = BreakerOpen
		hb.openedAt = b.now()
		hb.failures = 0
	}
}

// State returns the current state for host
func (b *Breakers) State(host string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hb, ok := b.hosts[host]; ok {
		return hb.state
	}
	return BreakerClosed
}

func (b *Breakers) get(host string) *hostBreaker {
	hb, ok := b.hosts[host]
	if !ok {
		hb = &hostBreaker{}
		b.hosts[host] = hb
	}
	return hb
}
