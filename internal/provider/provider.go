// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider

import (
	"context"
	"time"
)

// Adapter is the capability interface implemented once per external
// financial-data source (bank aggregators, crypto exchanges, on-chain
// APIs). Adapters perform the actual network I/O; the orchestration
// layer consumes them polymorphically and never inspects vendor
// specifics beyond the error contract in classify.go.
type Adapter interface {
	Name() string

	// HealthCheck is a lightweight reachability probe. It must complete
	// quickly and never block on rate limits.
	HealthCheck(ctx context.Context, region string) (HealthCheckResult, error)

	GetAccounts(ctx context.Context, creds Credentials, scope AccountScope) ([]ProviderAccount, error)
	SyncTransactions(ctx context.Context, creds Credentials, scope AccountScope, sinceCursor string) (*SyncResult, error)

	CreateLink(ctx context.Context, req LinkRequest) (*LinkSession, error)
	ExchangeToken(ctx context.Context, req TokenExchange) (*ExchangeResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)

	Close() error
}

// Operation names the logical adapter capability being invoked. The
// orchestrator treats all operations uniformly: same candidate walk,
// same error classification, same audit trail.
type Operation string

const (
	OpHealthCheck      Operation = "health_check"
	OpGetAccounts      Operation = "get_accounts"
	OpSyncTransactions Operation = "sync_transactions"
	OpCreateLink       Operation = "create_link"
	OpExchangeToken    Operation = "exchange_token"
	OpHandleWebhook    Operation = "handle_webhook"
)

// Known reports whether op is a recognized operation name.
func (op Operation) Known() bool {
	switch op {
	case OpHealthCheck, OpGetAccounts, OpSyncTransactions,
		OpCreateLink, OpExchangeToken, OpHandleWebhook:
		return true
	}
	return false
}

// Credentials carries the provider-side access material for one linked
// account. Encryption at rest is the secret store's concern; this struct
// only exists in memory for the duration of a call.
type Credentials struct {
	AccessToken string
	Extra       map[string]string
}

// AccountScope narrows an operation to specific provider-side accounts.
// Empty means all accounts under the credential.
type AccountScope struct {
	AccountIDs []string
}

// ProviderAccount is one account as reported by the upstream source.
type ProviderAccount struct {
	ID           string
	Name         string
	Type         string
	Mask         string
	Currency     string
	BalanceCents int64
}

// Transaction is one transaction row from an upstream sync.
type Transaction struct {
	ID          string
	AccountID   string
	AmountCents int64
	Currency    string
	Description string
	PostedAt    time.Time
	Pending     bool
}

// SyncResult is a page of transactions plus the cursor for the next page.
type SyncResult struct {
	Transactions []Transaction
	NextCursor   string
	HasMore      bool
}

// HealthCheckResult reports reachability of an upstream in a region.
type HealthCheckResult struct {
	Reachable bool
	Latency   time.Duration
	Message   string
}

// LinkRequest starts a vendor link flow for an end user.
type LinkRequest struct {
	UserID      string
	RedirectURI string
	Products    []string
}

// LinkSession is the vendor handle the frontend uses to complete linking.
type LinkSession struct {
	LinkToken string
	ExpiresAt time.Time
}

// TokenExchange trades a short-lived public token for durable credentials.
type TokenExchange struct {
	PublicToken string
}

// ExchangeResult is the durable credential produced by a token exchange.
type ExchangeResult struct {
	AccessToken string
	ItemID      string
}

// WebhookResult acknowledges an inbound vendor webhook.
type WebhookResult struct {
	Acknowledged bool
	Topic        string
}
