// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func TestNewIdentity_Normalizes(t *testing.T) {
	id, err := provider.NewIdentity("  Plaid ", " US ")
	require.NoError(t, err)

	assert.Equal(t, "plaid", id.Name())
	assert.Equal(t, "us", id.Region())
	assert.Equal(t, "plaid@us", id.String())
	assert.False(t, id.IsZero())
}

func TestNewIdentity_RequiresBothParts(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		region   string
	}{
		{"empty name", "", "us"},
		{"blank name", "   ", "us"},
		{"empty region", "plaid", ""},
		{"blank region", "plaid", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.NewIdentity(tt.provider, tt.region)
			require.Error(t, err)
			assert.True(t, aegiserr.HasCode(err, aegiserr.CodeProviderIdentityInvalid))
		})
	}
}

func TestIdentity_IsComparable(t *testing.T) {
	a, err := provider.NewIdentity("Plaid", "US")
	require.NoError(t, err)
	b, err := provider.NewIdentity("plaid", "us")
	require.NoError(t, err)

	// Normalization makes differently-cased inputs the same map key.
	assert.Equal(t, a, b)

	m := map[provider.Identity]int{a: 1}
	m[b]++
	assert.Equal(t, 2, m[a])
}

func TestIdentity_ZeroValue(t *testing.T) {
	var id provider.Identity
	assert.True(t, id.IsZero())
}
