// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package breaker implements per-(provider, region) circuit breakers
// gating whether the orchestrator attempts a call at all. State is kept
// in memory and resets to closed on restart; a resetting breaker that
// briefly retries a down provider costs one failed call, which is cheap
// next to synchronizing breaker state across processes.
package breaker

import (
	"sync"
	"time"

	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// State names one of the three breaker states. Exactly one holds at a time.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config controls the state machine thresholds.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips
	// CLOSED → OPEN.
	FailureThreshold int
	// SuccessThreshold is the consecutive-success count that restores
	// HALF_OPEN → CLOSED.
	SuccessThreshold int
	// OpenTimeout is how long an open breaker rejects calls before the
	// next call is allowed through as a half-open probe.
	OpenTimeout time.Duration
}

// DefaultConfig mirrors the documented defaults: 5 failures to open,
// 2 successes to close, 60s cooldown.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

func (c Config) validate() error {
	if c.FailureThreshold <= 0 {
		return aegiserr.Errorf(aegiserr.CodeBreakerConfigInvalid,
			"failure threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold <= 0 {
		return aegiserr.Errorf(aegiserr.CodeBreakerConfigInvalid,
			"success threshold must be positive, got %d", c.SuccessThreshold)
	}
	if c.OpenTimeout <= 0 {
		return aegiserr.Errorf(aegiserr.CodeBreakerConfigInvalid,
			"open timeout must be positive, got %s", c.OpenTimeout)
	}
	return nil
}

// entry is the per-identity state machine. Each entry carries its own
// lock so concurrent calls against different identities never contend.
type entry struct {
	mu            sync.Mutex
	state         State
	consecFails   int
	consecSuccess int
	openedAt      time.Time
	probing       bool
	probeStarted  time.Time
}

// Breaker is a keyed store of circuit breaker state machines. It is
// shared across all concurrent Execute calls by design; tests construct
// isolated instances.
type Breaker struct {
	cfg     Config
	nowFunc func() time.Time // for testing

	mu      sync.RWMutex
	entries map[provider.Identity]*entry
}

// New creates a Breaker with validated config.
func New(cfg Config) (*Breaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Breaker{
		cfg:     cfg,
		nowFunc: time.Now,
		entries: make(map[provider.Identity]*entry),
	}, nil
}

// SetNowFunc overrides the time source (for testing).
func (b *Breaker) SetNowFunc(fn func() time.Time) {
	b.mu.Lock()
	b.nowFunc = fn
	b.mu.Unlock()
}

// Allow reports whether a call to id may be attempted. It returns false
// while the breaker is OPEN and the open timeout has not elapsed, and
// while a HALF_OPEN probe is already in flight. The OPEN → HALF_OPEN
// transition happens lazily here: the first call arriving after the
// timeout sees HALF_OPEN and proceeds as the single probe.
func (b *Breaker) Allow(id provider.Identity) bool {
	e := b.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateOpen:
		if b.now().Sub(e.openedAt) >= b.cfg.OpenTimeout {
			e.state = StateHalfOpen
			e.consecSuccess = 0
			e.probing = true
			e.probeStarted = b.now()
			return true
		}
		return false
	case StateHalfOpen:
		// One trial call at a time. A probe that never reports an
		// outcome (the call was cancelled) frees the slot after
		// another cooldown.
		if e.probing && b.now().Sub(e.probeStarted) < b.cfg.OpenTimeout {
			return false
		}
		e.probing = true
		e.probeStarted = b.now()
		return true
	default:
		return true
	}
}

// RecordOutcome feeds one attempted call's result into the state
// machine. It must be called exactly once per attempted call and never
// for calls Allow rejected.
func (b *Breaker) RecordOutcome(id provider.Identity, success bool) {
	e := b.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.probing = false

	switch e.state {
	case StateHalfOpen:
		if success {
			e.consecSuccess++
			if e.consecSuccess >= b.cfg.SuccessThreshold {
				e.state = StateClosed
				e.consecFails = 0
				e.consecSuccess = 0
			}
			return
		}
		// Any failure while probing immediately reopens.
		e.state = StateOpen
		e.openedAt = b.now()
		e.consecSuccess = 0
		e.consecFails = 0

	case StateOpen:
		// RecordOutcome for an open breaker means Allow raced with a
		// long in-flight call; treat like a half-open probe failure so
		// openedAt stays fresh on failure.
		if !success {
			e.openedAt = b.now()
		}

	default: // StateClosed
		if success {
			e.consecFails = 0
			return
		}
		e.consecFails++
		if e.consecFails >= b.cfg.FailureThreshold {
			e.state = StateOpen
			e.openedAt = b.now()
			e.consecSuccess = 0
		}
	}
}

// State returns the current state for id, accounting for an elapsed
// open timeout (an open breaker past its cooldown reports HALF_OPEN,
// matching what the next Allow call would observe).
func (b *Breaker) State(id provider.Identity) State {
	e := b.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateOpen && b.now().Sub(e.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return e.state
}

// Open reports whether calls to id are currently being rejected.
func (b *Breaker) Open(id provider.Identity) bool {
	e := b.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state == StateOpen && b.now().Sub(e.openedAt) < b.cfg.OpenTimeout
}

func (b *Breaker) now() time.Time {
	b.mu.RLock()
	fn := b.nowFunc
	b.mu.RUnlock()
	return fn()
}

// entry returns the state machine for id, creating it lazily in the
// closed state on first use.
func (b *Breaker) entry(id provider.Identity) *entry {
	b.mu.RLock()
	e, ok := b.entries[id]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[id]; ok {
		return e
	}
	e = &entry{state: StateClosed}
	b.entries[id] = e
	return e
}
