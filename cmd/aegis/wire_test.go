// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-fin/aegis/internal/breaker"
	"github.com/aegis-fin/aegis/internal/healthmon"
	"github.com/aegis-fin/aegis/internal/provider"
	"github.com/aegis-fin/aegis/internal/store"
	"github.com/aegis-fin/aegis/pkg/health"
)

func newHealthAdapter(t *testing.T, persisted store.HealthStore) (*providerHealthServiceAdapter, *healthmon.Monitor, *breaker.Breaker) {
	t.Helper()

	monitor, err := healthmon.New(5 * time.Minute)
	require.NoError(t, err)
	brk, err := breaker.New(breaker.DefaultConfig())
	require.NoError(t, err)

	return &providerHealthServiceAdapter{
		monitor:   monitor,
		breaker:   brk,
		persisted: persisted,
	}, monitor, brk
}

func TestHealthAdapter_SurfacesPersistedRowsAfterRestart(t *testing.T) {
	persisted := store.NewMemoryHealthStore()
	require.NoError(t, persisted.Upsert(context.Background(), health.ProviderHealth{
		Provider:     "plaid",
		Region:       "us",
		Status:       health.StatusDegraded,
		ErrorRate:    40,
		SuccessCount: 3,
		FailureCount: 2,
	}))

	// A freshly wired gateway has an empty monitor; the persisted row
	// must still reach the health view.
	adapter, _, _ := newHealthAdapter(t, persisted)

	snaps, err := adapter.Snapshot(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "plaid", snaps[0].Provider)
	assert.Equal(t, health.StatusDegraded, snaps[0].Status)
	assert.False(t, snaps[0].CircuitOpen, "breaker state does not survive restarts")
}

func TestHealthAdapter_LiveRowsWinOverPersisted(t *testing.T) {
	persisted := store.NewMemoryHealthStore()
	require.NoError(t, persisted.Upsert(context.Background(), health.ProviderHealth{
		Provider: "plaid", Region: "us", Status: health.StatusDown, FailureCount: 9,
	}))
	require.NoError(t, persisted.Upsert(context.Background(), health.ProviderHealth{
		Provider: "finicity", Region: "us", Status: health.StatusHealthy, SuccessCount: 4,
	}))

	adapter, monitor, _ := newHealthAdapter(t, persisted)

	id, err := provider.NewIdentity("plaid", "us")
	require.NoError(t, err)
	monitor.RecordCall(id, true, 100*time.Millisecond, "")

	snaps, err := adapter.Snapshot(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	byProvider := make(map[string]health.ProviderHealth, len(snaps))
	for _, s := range snaps {
		byProvider[s.Provider] = s
	}
	assert.Equal(t, health.StatusHealthy, byProvider["plaid"].Status, "the live window replaces the stale row")
	assert.Equal(t, int64(1), byProvider["plaid"].SuccessCount)
	assert.Equal(t, int64(4), byProvider["finicity"].SuccessCount, "identities without fresh calls keep their persisted row")
}

func TestHealthAdapter_RegionFilterCoversPersistedRows(t *testing.T) {
	persisted := store.NewMemoryHealthStore()
	require.NoError(t, persisted.Upsert(context.Background(), health.ProviderHealth{
		Provider: "plaid", Region: "us", Status: health.StatusHealthy,
	}))
	require.NoError(t, persisted.Upsert(context.Background(), health.ProviderHealth{
		Provider: "truelayer", Region: "eu", Status: health.StatusHealthy,
	}))

	adapter, _, _ := newHealthAdapter(t, persisted)

	snaps, err := adapter.Snapshot(context.Background(), "eu")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "truelayer", snaps[0].Provider)
}

func TestHealthAdapter_BreakerStateAppliesToLiveRows(t *testing.T) {
	adapter, monitor, brk := newHealthAdapter(t, store.NewMemoryHealthStore())

	id, err := provider.NewIdentity("plaid", "us")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		monitor.RecordCall(id, false, 50*time.Millisecond, "refused")
		brk.RecordOutcome(id, false)
	}

	snaps, err := adapter.Snapshot(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].CircuitOpen)
}
