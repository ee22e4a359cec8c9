// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func TestCall_DispatchesEachOperation(t *testing.T) {
	ctx := context.Background()

	var gotCursor, gotRegion, gotSignature string
	a := &fakeAdapter{
		name: "plaid",
		healthCheckFn: func(_ context.Context, region string) (provider.HealthCheckResult, error) {
			gotRegion = region
			return provider.HealthCheckResult{Reachable: true}, nil
		},
		syncFn: func(_ context.Context, _ provider.Credentials, _ provider.AccountScope, cursor string) (*provider.SyncResult, error) {
			gotCursor = cursor
			return &provider.SyncResult{NextCursor: "next"}, nil
		},
		webhookFn: func(_ context.Context, _ []byte, signature string) (*provider.WebhookResult, error) {
			gotSignature = signature
			return &provider.WebhookResult{Acknowledged: true}, nil
		},
	}

	out, err := provider.Call(ctx, a, provider.OpHealthCheck, "eu", provider.CallArgs{})
	require.NoError(t, err)
	assert.Equal(t, "eu", gotRegion)
	assert.IsType(t, provider.HealthCheckResult{}, out)

	out, err = provider.Call(ctx, a, provider.OpSyncTransactions, "eu", provider.CallArgs{SinceCursor: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "c1", gotCursor)
	assert.Equal(t, "next", out.(*provider.SyncResult).NextCursor)

	_, err = provider.Call(ctx, a, provider.OpHandleWebhook, "eu", provider.CallArgs{
		WebhookPayload:   []byte(`{}`),
		WebhookSignature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, "sig", gotSignature)

	_, err = provider.Call(ctx, a, provider.OpGetAccounts, "eu", provider.CallArgs{})
	require.NoError(t, err)
	_, err = provider.Call(ctx, a, provider.OpCreateLink, "eu", provider.CallArgs{})
	require.NoError(t, err)
	_, err = provider.Call(ctx, a, provider.OpExchangeToken, "eu", provider.CallArgs{})
	require.NoError(t, err)
}

func TestCall_UnknownOperation(t *testing.T) {
	_, err := provider.Call(context.Background(), &fakeAdapter{}, provider.Operation("mine_bitcoin"), "us", provider.CallArgs{})
	require.Error(t, err)
	assert.True(t, aegiserr.HasCode(err, aegiserr.CodeProviderOperationInvalid))
}

func TestOperation_Known(t *testing.T) {
	for _, op := range []provider.Operation{
		provider.OpHealthCheck, provider.OpGetAccounts, provider.OpSyncTransactions,
		provider.OpCreateLink, provider.OpExchangeToken, provider.OpHandleWebhook,
	} {
		assert.True(t, op.Known(), string(op))
	}
	assert.False(t, provider.Operation("settle_trades").Known())
}
