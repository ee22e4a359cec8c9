// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider_test

import (
	"context"

	"github.com/aegis-fin/aegis/internal/provider"
)

// fakeAdapter implements provider.Adapter with overridable behavior.
// The zero value succeeds on every operation with empty results.
type fakeAdapter struct {
	name string

	healthCheckFn func(ctx context.Context, region string) (provider.HealthCheckResult, error)
	getAccountsFn func(ctx context.Context, creds provider.Credentials, scope provider.AccountScope) ([]provider.ProviderAccount, error)
	syncFn        func(ctx context.Context, creds provider.Credentials, scope provider.AccountScope, cursor string) (*provider.SyncResult, error)
	createLinkFn  func(ctx context.Context, req provider.LinkRequest) (*provider.LinkSession, error)
	exchangeFn    func(ctx context.Context, req provider.TokenExchange) (*provider.ExchangeResult, error)
	webhookFn     func(ctx context.Context, payload []byte, signature string) (*provider.WebhookResult, error)
	closeFn       func() error

	closed bool
}

func (f *fakeAdapter) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeAdapter) HealthCheck(ctx context.Context, region string) (provider.HealthCheckResult, error) {
	if f.healthCheckFn != nil {
		return f.healthCheckFn(ctx, region)
	}
	return provider.HealthCheckResult{Reachable: true}, nil
}

func (f *fakeAdapter) GetAccounts(ctx context.Context, creds provider.Credentials, scope provider.AccountScope) ([]provider.ProviderAccount, error) {
	if f.getAccountsFn != nil {
		return f.getAccountsFn(ctx, creds, scope)
	}
	return []provider.ProviderAccount{}, nil
}

func (f *fakeAdapter) SyncTransactions(ctx context.Context, creds provider.Credentials, scope provider.AccountScope, cursor string) (*provider.SyncResult, error) {
	if f.syncFn != nil {
		return f.syncFn(ctx, creds, scope, cursor)
	}
	return &provider.SyncResult{}, nil
}

func (f *fakeAdapter) CreateLink(ctx context.Context, req provider.LinkRequest) (*provider.LinkSession, error) {
	if f.createLinkFn != nil {
		return f.createLinkFn(ctx, req)
	}
	return &provider.LinkSession{}, nil
}

func (f *fakeAdapter) ExchangeToken(ctx context.Context, req provider.TokenExchange) (*provider.ExchangeResult, error) {
	if f.exchangeFn != nil {
		return f.exchangeFn(ctx, req)
	}
	return &provider.ExchangeResult{}, nil
}

func (f *fakeAdapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookResult, error) {
	if f.webhookFn != nil {
		return f.webhookFn(ctx, payload, signature)
	}
	return &provider.WebhookResult{Acknowledged: true}, nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}
