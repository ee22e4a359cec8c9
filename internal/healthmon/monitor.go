// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package healthmon maintains rolling-window reliability counters per
// (provider, region). It is the source of truth the circuit breaker
// thresholds were tuned against and the data behind operator
// dashboards; it never gates calls itself.
package healthmon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aegis-fin/aegis/internal/provider"
	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// Thresholds for deriving the coarse status from the window error rate.
// Down requires at least one recorded call so an idle provider reports
// healthy, not down.
const (
	degradedErrorRate = 25.0
	downErrorRate     = 75.0
)

// entry holds one identity's window counters. Each entry has its own
// lock; the monitor map lock only guards lazy creation.
type entry struct {
	mu              sync.Mutex
	successCount    int64
	failureCount    int64
	totalLatency    time.Duration
	lastSuccessAt   time.Time
	lastFailureAt   time.Time
	lastError       string
	windowStartedAt time.Time
}

// Monitor tracks per-identity health over a fixed rolling window.
// Counters zero fully when the window expires; there is no decay.
type Monitor struct {
	window  time.Duration
	nowFunc func() time.Time // for testing
	persist store.HealthStore
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[provider.Identity]*entry
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithStore makes the monitor flush each identity's snapshot through hs
// after every recorded call, best-effort, so dashboards survive
// restarts. Flush failures are logged and never propagate.
func WithStore(hs store.HealthStore) Option {
	return func(m *Monitor) { m.persist = hs }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a Monitor with the given rolling-window duration.
func New(window time.Duration, opts ...Option) (*Monitor, error) {
	if window <= 0 {
		return nil, aegiserr.Errorf(aegiserr.CodeMonitorConfigInvalid,
			"health window must be positive, got %s", window)
	}
	m := &Monitor{
		window:  window,
		nowFunc: time.Now,
		logger:  slog.Default(),
		entries: make(map[provider.Identity]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SetNowFunc overrides the time source (for testing).
func (m *Monitor) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
}

// RecordCall updates the window counters for one completed call. If the
// window has expired, counters are zeroed and the window restarted
// before this call is recorded, so the triggering call lands in the
// fresh window rather than the stale one.
func (m *Monitor) RecordCall(id provider.Identity, success bool, latency time.Duration, errMsg string) {
	e := m.entry(id)
	now := m.now()

	e.mu.Lock()
	if e.windowStartedAt.IsZero() || now.Sub(e.windowStartedAt) > m.window {
		e.successCount = 0
		e.failureCount = 0
		e.totalLatency = 0
		e.windowStartedAt = now
	}

	e.totalLatency += latency
	if success {
		e.successCount++
		e.lastSuccessAt = now
	} else {
		e.failureCount++
		e.lastFailureAt = now
		e.lastError = errMsg
	}

	snap := e.snapshotLocked(id)
	e.mu.Unlock()

	if m.persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.persist.Upsert(ctx, snap); err != nil {
			m.logger.Warn("persisting health snapshot failed",
				"provider", id.String(), "error", err)
		}
	}
}

// Status returns the current snapshot for one identity. An identity
// that has never been called reports zeroed counters and healthy.
func (m *Monitor) Status(id provider.Identity) health.ProviderHealth {
	e := m.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(id)
}

// Snapshot returns snapshots for every identity seen so far, filtered
// to region when region is non-empty.
func (m *Monitor) Snapshot(region string) []health.ProviderHealth {
	m.mu.RLock()
	ids := make([]provider.Identity, 0, len(m.entries))
	for id := range m.entries {
		if region == "" || id.Region() == region {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	out := make([]health.ProviderHealth, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Status(id))
	}
	return out
}

// snapshotLocked builds a ProviderHealth from the entry. Caller holds e.mu.
func (e *entry) snapshotLocked(id provider.Identity) health.ProviderHealth {
	total := e.successCount + e.failureCount

	var errorRate float64
	if total > 0 {
		errorRate = float64(e.failureCount) / float64(total) * 100
	}

	var avgMs float64
	if total > 0 {
		avgMs = float64(e.totalLatency.Milliseconds()) / float64(total)
	}

	status := health.StatusHealthy
	switch {
	case total > 0 && errorRate >= downErrorRate:
		status = health.StatusDown
	case errorRate >= degradedErrorRate:
		status = health.StatusDegraded
	}

	ph := health.ProviderHealth{
		Provider:        id.Name(),
		Region:          id.Region(),
		Status:          status,
		ErrorRate:       errorRate,
		AvgResponseMs:   avgMs,
		SuccessCount:    e.successCount,
		FailureCount:    e.failureCount,
		LastError:       e.lastError,
		WindowStartedAt: e.windowStartedAt,
	}
	if !e.lastSuccessAt.IsZero() {
		t := e.lastSuccessAt
		ph.LastSuccessAt = &t
	}
	if !e.lastFailureAt.IsZero() {
		t := e.lastFailureAt
		ph.LastFailureAt = &t
	}
	return ph
}

func (m *Monitor) now() time.Time {
	m.mu.RLock()
	fn := m.nowFunc
	m.mu.RUnlock()
	return fn()
}

func (m *Monitor) entry(id provider.Identity) *entry {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return e
	}
	e = &entry{}
	m.entries[id] = e
	return e
}
