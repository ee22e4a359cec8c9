// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package breaker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-fin/aegis/internal/breaker"
	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func testIdentity(t *testing.T) provider.Identity {
	t.Helper()
	id, err := provider.NewIdentity("plaid", "us")
	require.NoError(t, err)
	return id
}

func newTestBreaker(t *testing.T) *breaker.Breaker {
	t.Helper()
	b, err := breaker.New(breaker.DefaultConfig())
	require.NoError(t, err)
	return b
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  breaker.Config
	}{
		{"zero failure threshold", breaker.Config{FailureThreshold: 0, SuccessThreshold: 2, OpenTimeout: time.Minute}},
		{"zero success threshold", breaker.Config{FailureThreshold: 5, SuccessThreshold: 0, OpenTimeout: time.Minute}},
		{"zero open timeout", breaker.Config{FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := breaker.New(tt.cfg)
			require.Error(t, err)
			assert.True(t, aegiserr.HasCode(err, aegiserr.CodeBreakerConfigInvalid))
		})
	}
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := newTestBreaker(t)
	id := testIdentity(t)

	assert.Equal(t, breaker.StateClosed, b.State(id))
	assert.True(t, b.Allow(id))
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := newTestBreaker(t)
	id := testIdentity(t)

	for i := 0; i < 4; i++ {
		b.RecordOutcome(id, false)
		assert.Equal(t, breaker.StateClosed, b.State(id), "failure %d should not open yet", i+1)
	}

	b.RecordOutcome(id, false)
	assert.Equal(t, breaker.StateOpen, b.State(id))
	assert.False(t, b.Allow(id))
	assert.True(t, b.Open(id))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(t)
	id := testIdentity(t)

	for i := 0; i < 4; i++ {
		b.RecordOutcome(id, false)
	}
	b.RecordOutcome(id, true)

	// Four more failures must not open; the streak restarted.
	for i := 0; i < 4; i++ {
		b.RecordOutcome(id, false)
	}
	assert.Equal(t, breaker.StateClosed, b.State(id))

	b.RecordOutcome(id, false)
	assert.Equal(t, breaker.StateOpen, b.State(id))
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}
	require.False(t, b.Allow(id))

	// One millisecond short of the cooldown still rejects.
	b.SetNowFunc(func() time.Time { return now.Add(60*time.Second - time.Millisecond) })
	assert.False(t, b.Allow(id))
	assert.Equal(t, breaker.StateOpen, b.State(id))

	// At the boundary the next call goes through as the probe.
	b.SetNowFunc(func() time.Time { return now.Add(60 * time.Second) })
	assert.Equal(t, breaker.StateHalfOpen, b.State(id))
	assert.True(t, b.Allow(id))
}

func TestBreaker_HalfOpenClosesAfterSuccesses(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}
	b.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })
	require.True(t, b.Allow(id))

	b.RecordOutcome(id, true)
	assert.Equal(t, breaker.StateHalfOpen, b.State(id), "one success is below the close threshold")
	require.True(t, b.Allow(id))

	b.RecordOutcome(id, true)
	assert.Equal(t, breaker.StateClosed, b.State(id))
}

func TestBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}
	b.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })

	// The first caller takes the probe slot; concurrent callers are
	// rejected until the probe reports an outcome.
	require.True(t, b.Allow(id))
	assert.False(t, b.Allow(id))
	assert.False(t, b.Allow(id))

	b.RecordOutcome(id, true)
	assert.True(t, b.Allow(id), "a reported outcome frees the probe slot")
	assert.False(t, b.Allow(id))

	// A probe that never reports (cancelled call) blocks only for one
	// cooldown, then the slot opens again.
	b.SetNowFunc(func() time.Time { return now.Add(122 * time.Second) })
	assert.True(t, b.Allow(id))
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}
	b.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })
	require.True(t, b.Allow(id))

	b.RecordOutcome(id, true)
	b.RecordOutcome(id, false)

	assert.Equal(t, breaker.StateOpen, b.State(id))
	assert.False(t, b.Allow(id))

	// The cooldown restarts from the probe failure, not the original trip.
	b.SetNowFunc(func() time.Time { return now.Add(61*time.Second + 59*time.Second) })
	assert.False(t, b.Allow(id))
	b.SetNowFunc(func() time.Time { return now.Add(121 * time.Second) })
	assert.True(t, b.Allow(id))
}

func TestBreaker_ReopenResetsSuccessStreak(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}

	// First probe cycle: one success, then a failure reopens.
	b.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })
	require.True(t, b.Allow(id))
	b.RecordOutcome(id, true)
	b.RecordOutcome(id, false)

	// Second probe cycle: a single success must not close the breaker,
	// the streak from the first cycle is gone.
	b.SetNowFunc(func() time.Time { return now.Add(125 * time.Second) })
	require.True(t, b.Allow(id))
	b.RecordOutcome(id, true)
	assert.Equal(t, breaker.StateHalfOpen, b.State(id))
}

func TestBreaker_IdentitiesAreIndependent(t *testing.T) {
	b := newTestBreaker(t)

	plaidUS, err := provider.NewIdentity("plaid", "us")
	require.NoError(t, err)
	plaidEU, err := provider.NewIdentity("plaid", "eu")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(plaidUS, false)
	}

	assert.False(t, b.Allow(plaidUS))
	assert.True(t, b.Allow(plaidEU), "same provider in another region keeps its own breaker")
	assert.Equal(t, breaker.StateClosed, b.State(plaidEU))
}

func TestBreaker_InFlightFailureRefreshesOpenCooldown(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(t)
	b.SetNowFunc(func() time.Time { return now })
	id := testIdentity(t)

	for i := 0; i < 5; i++ {
		b.RecordOutcome(id, false)
	}

	// A slow call that started before the trip reports its failure late.
	b.SetNowFunc(func() time.Time { return now.Add(30 * time.Second) })
	b.RecordOutcome(id, false)

	// 60s after the original trip the cooldown has been pushed out.
	b.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })
	assert.False(t, b.Allow(id))

	b.SetNowFunc(func() time.Time { return now.Add(91 * time.Second) })
	assert.True(t, b.Allow(id))
}

// Run with `go test -race` to catch lock misuse across the keyed entries.
func TestBreaker_ConcurrentOutcomes(t *testing.T) {
	b := newTestBreaker(t)
	id := testIdentity(t)

	const goroutines = 8
	const iterations = 200

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				b.Allow(id)
				b.RecordOutcome(id, success)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	// The state machine must land in one of its three valid states.
	s := b.State(id)
	assert.Contains(t, []breaker.State{breaker.StateClosed, breaker.StateOpen, breaker.StateHalfOpen}, s)
}
