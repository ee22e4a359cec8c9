// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package restadapter implements provider.Adapter over a JSON/HTTP
// vendor API. Aggregator sandboxes and self-hosted bridge services
// expose the same small surface, so one adapter parameterized by
// endpoint and credentials covers all of them.
package restadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aegis-fin/aegis/internal/provider"
)

// Config holds one vendor connection's configuration.
type Config struct {
	Name         string
	Endpoint     string // base URL, e.g. https://sandbox.plaid.com
	APIKey       string
	ClientSecret string

	// HTTPClient overrides the default client, useful for testing
	// against a mock server.
	HTTPClient *http.Client
}

// Adapter talks to a vendor's JSON API.
type Adapter struct {
	cfg    Config
	client *http.Client
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an Adapter. Returns an error if the name, endpoint, or
// API key is missing.
func New(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("restadapter: missing provider name")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("restadapter: %s: missing endpoint in config", cfg.Name)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("restadapter: %s: missing api_key in config", cfg.Name)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Adapter{cfg: cfg, client: client}, nil
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Close() error { return nil }

// HealthCheck probes the vendor's health endpoint for a region.
func (a *Adapter) HealthCheck(ctx context.Context, region string) (provider.HealthCheckResult, error) {
	start := time.Now()
	var body struct {
		Status string `json:"status"`
	}
	err := a.do(ctx, http.MethodGet, "/v1/health?region="+region, nil, &body)
	elapsed := time.Since(start)
	if err != nil {
		return provider.HealthCheckResult{Reachable: false, Latency: elapsed, Message: err.Error()}, err
	}
	return provider.HealthCheckResult{Reachable: true, Latency: elapsed, Message: body.Status}, nil
}

func (a *Adapter) GetAccounts(ctx context.Context, creds provider.Credentials, scope provider.AccountScope) ([]provider.ProviderAccount, error) {
	req := struct {
		AccessToken string   `json:"access_token"`
		AccountIDs  []string `json:"account_ids,omitempty"`
	}{creds.AccessToken, scope.AccountIDs}

	var resp struct {
		Accounts []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Type         string `json:"type"`
			Mask         string `json:"mask"`
			Currency     string `json:"currency"`
			BalanceCents int64  `json:"balance_cents"`
		} `json:"accounts"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/accounts/get", req, &resp); err != nil {
		return nil, err
	}

	out := make([]provider.ProviderAccount, len(resp.Accounts))
	for i, acc := range resp.Accounts {
		out[i] = provider.ProviderAccount{
			ID:           acc.ID,
			Name:         acc.Name,
			Type:         acc.Type,
			Mask:         acc.Mask,
			Currency:     acc.Currency,
			BalanceCents: acc.BalanceCents,
		}
	}
	return out, nil
}

func (a *Adapter) SyncTransactions(ctx context.Context, creds provider.Credentials, scope provider.AccountScope, sinceCursor string) (*provider.SyncResult, error) {
	req := struct {
		AccessToken string   `json:"access_token"`
		AccountIDs  []string `json:"account_ids,omitempty"`
		Cursor      string   `json:"cursor,omitempty"`
	}{creds.AccessToken, scope.AccountIDs, sinceCursor}

	var resp struct {
		Transactions []struct {
			ID          string    `json:"id"`
			AccountID   string    `json:"account_id"`
			AmountCents int64     `json:"amount_cents"`
			Currency    string    `json:"currency"`
			Description string    `json:"description"`
			PostedAt    time.Time `json:"posted_at"`
			Pending     bool      `json:"pending"`
		} `json:"transactions"`
		NextCursor string `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/transactions/sync", req, &resp); err != nil {
		return nil, err
	}

	result := &provider.SyncResult{
		Transactions: make([]provider.Transaction, len(resp.Transactions)),
		NextCursor:   resp.NextCursor,
		HasMore:      resp.HasMore,
	}
	for i, tx := range resp.Transactions {
		result.Transactions[i] = provider.Transaction{
			ID:          tx.ID,
			AccountID:   tx.AccountID,
			AmountCents: tx.AmountCents,
			Currency:    tx.Currency,
			Description: tx.Description,
			PostedAt:    tx.PostedAt,
			Pending:     tx.Pending,
		}
	}
	return result, nil
}

func (a *Adapter) CreateLink(ctx context.Context, req provider.LinkRequest) (*provider.LinkSession, error) {
	body := struct {
		UserID      string   `json:"user_id"`
		RedirectURI string   `json:"redirect_uri,omitempty"`
		Products    []string `json:"products,omitempty"`
	}{req.UserID, req.RedirectURI, req.Products}

	var resp struct {
		LinkToken string    `json:"link_token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/link/create", body, &resp); err != nil {
		return nil, err
	}
	return &provider.LinkSession{LinkToken: resp.LinkToken, ExpiresAt: resp.ExpiresAt}, nil
}

func (a *Adapter) ExchangeToken(ctx context.Context, req provider.TokenExchange) (*provider.ExchangeResult, error) {
	body := struct {
		PublicToken string `json:"public_token"`
	}{req.PublicToken}

	var resp struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/token/exchange", body, &resp); err != nil {
		return nil, err
	}
	return &provider.ExchangeResult{AccessToken: resp.AccessToken, ItemID: resp.ItemID}, nil
}

func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (*provider.WebhookResult, error) {
	body := struct {
		Payload   json.RawMessage `json:"payload"`
		Signature string          `json:"signature"`
	}{json.RawMessage(payload), signature}
	if !json.Valid(payload) {
		raw, _ := json.Marshal(string(payload))
		body.Payload = raw
	}

	var resp struct {
		Acknowledged bool   `json:"acknowledged"`
		Topic        string `json:"topic"`
	}
	if err := a.do(ctx, http.MethodPost, "/v1/webhook/verify", body, &resp); err != nil {
		return nil, err
	}
	return &provider.WebhookResult{Acknowledged: resp.Acknowledged, Topic: resp.Topic}, nil
}

// vendorError is the error body shape shared by the vendor APIs this
// adapter targets.
type vendorError struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// do performs one JSON request/response round trip. Non-2xx responses
// become *provider.CallError values carrying the vendor code and a
// status-derived classification for the orchestration layer.
func (a *Adapter) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("restadapter: %s: encoding request: %w", a.cfg.Name, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.Endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("restadapter: %s: building request: %w", a.cfg.Name, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	if a.cfg.ClientSecret != "" {
		req.Header.Set("X-Client-Secret", a.cfg.ClientSecret)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var ve vendorError
		_ = json.Unmarshal(raw, &ve)
		if ve.ErrorMessage == "" {
			ve.ErrorMessage = fmt.Sprintf("%s returned status %d", a.cfg.Name, resp.StatusCode)
		}
		return provider.NewCallError(kindForStatus(resp.StatusCode), ve.ErrorCode, ve.ErrorMessage)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("restadapter: %s: invalid response: %w", a.cfg.Name, err)
	}
	return nil
}

// kindForStatus maps an HTTP status to a classification kind. Operator
// overrides by vendor code still take precedence in the Classifier.
func kindForStatus(status int) provider.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.KindAuth
	case status == http.StatusTooManyRequests:
		return provider.KindRateLimit
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return provider.KindValidation
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return provider.KindProviderUnavailable
	case status >= 500:
		return provider.KindProviderUnavailable
	}
	return provider.KindUnknown
}
