// Package resilience keeps the coaching loop alive when a provider backend
// misbehaves. A three-state circuit breaker (closed → open → half-open) stops
// hammering a failing service, and [FallbackGroup] chains alternative backends
// behind per-entry breakers so a sick primary is bypassed automatically.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the protected call while a
// breaker is open and its cool-down has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the cool-down
	// elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through to decide
	// whether the backend has recovered.
	StateHalfOpen
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

// Defaults applied by [NewCircuitBreaker] for zero-valued config fields.
const (
	defaultMaxFailures = 5
	defaultCoolDown    = 30 * time.Second
	defaultProbeBudget = 3
)

// CircuitBreakerConfig tunes a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// MaxFailures is how many consecutive closed-state failures trip the
	// breaker open.
	MaxFailures int

	// CoolDown is how long the breaker stays open before probing.
	CoolDown time.Duration

	// ProbeBudget is how many half-open probe calls may run before the breaker
	// commits to closing or re-opening.
	ProbeBudget int
}

// CircuitBreaker implements the three-state breaker pattern. Safe for
// concurrent use.
type CircuitBreaker struct {
	name        string
	maxFailures int
	coolDown    time.Duration
	probeBudget int

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	probeOK  int
}

// NewCircuitBreaker creates a breaker, substituting defaults for zero-valued
// config fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		coolDown:    cfg.CoolDown,
		probeBudget: cfg.ProbeBudget,
	}
	if cb.maxFailures <= 0 {
		cb.maxFailures = defaultMaxFailures
	}
	if cb.coolDown <= 0 {
		cb.coolDown = defaultCoolDown
	}
	if cb.probeBudget <= 0 {
		cb.probeBudget = defaultProbeBudget
	}
	return cb
}

// Execute runs fn if the breaker allows it, records the outcome, and returns
// fn's error. While open it returns [ErrCircuitOpen] without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, allowed := cb.allow()
	if !allowed {
		return ErrCircuitOpen
	}

	err := fn()
	cb.observe(err, probing)
	return err
}

// allow decides whether a call may proceed, performing the open → half-open
// transition when the cool-down has elapsed. The first return reports whether
// the call counts against the probe budget.
func (cb *CircuitBreaker) allow() (probing, allowed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < cb.coolDown {
			return false, false
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeOK = 0
		slog.Info("circuit breaker probing backend", "name", cb.name)
	case StateHalfOpen:
		if cb.probes >= cb.probeBudget {
			return false, false
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, true
	}
	return false, true
}

// observe records a call outcome.
func (cb *CircuitBreaker) observe(err error, probing bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err != nil && probing:
		// One failed probe is enough evidence the backend is still down.
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.failures = cb.maxFailures
		slog.Warn("circuit breaker re-opened after failed probe", "name", cb.name)

	case err != nil:
		cb.failures++
		cb.openedAt = time.Now()
		if cb.state == StateClosed && cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", cb.name, "consecutive_failures", cb.failures)
		}

	case probing:
		cb.probeOK++
		if cb.probeOK >= cb.probeBudget {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeOK = 0
			slog.Info("circuit breaker closed after successful probes", "name", cb.name)
		}

	default:
		cb.failures = 0
	}
}

// State returns the breaker's current state. An open breaker whose cool-down
// has elapsed reports [StateHalfOpen]; the stored transition happens on the
// next Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.coolDown {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeOK = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
