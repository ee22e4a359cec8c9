// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider

import (
	"context"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// CallArgs is the union of inputs for all adapter operations. Only the
// fields relevant to the invoked Operation are read.
type CallArgs struct {
	Credentials Credentials
	Scope       AccountScope
	SinceCursor string

	Link     LinkRequest
	Exchange TokenExchange

	WebhookPayload   []byte
	WebhookSignature string
}

// Call dispatches one logical operation to the adapter. It is the single
// choke point between the orchestrator and the capability interface, so
// the orchestrator never switches on operation names itself.
func Call(ctx context.Context, a Adapter, op Operation, region string, args CallArgs) (any, error) {
	switch op {
	case OpHealthCheck:
		return a.HealthCheck(ctx, region)
	case OpGetAccounts:
		return a.GetAccounts(ctx, args.Credentials, args.Scope)
	case OpSyncTransactions:
		return a.SyncTransactions(ctx, args.Credentials, args.Scope, args.SinceCursor)
	case OpCreateLink:
		return a.CreateLink(ctx, args.Link)
	case OpExchangeToken:
		return a.ExchangeToken(ctx, args.Exchange)
	case OpHandleWebhook:
		return a.HandleWebhook(ctx, args.WebhookPayload, args.WebhookSignature)
	default:
		return nil, aegiserr.New(
			aegiserr.CodeProviderOperationInvalid,
			"unknown operation: "+string(op),
			aegiserr.FieldOperation(string(op)),
			aegiserr.FieldProvider(a.Name()),
		)
	}
}
