// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aegis-fin/aegis/internal/orchestrator"
	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "execute-operation",
		Method:      http.MethodPost,
		Path:        "/api/v1/execute",
		Summary:     "Execute a provider operation with failover",
		Tags:        []string{"orchestration"},
	}, s.handleExecute)

	huma.Register(s.api, huma.Operation{
		OperationID: "provider-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers/health",
		Summary:     "Provider health snapshots",
		Tags:        []string{"providers"},
	}, s.handleProviderHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "connection-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{accountId}/attempts",
		Summary:     "Connection attempt history for an account",
		Tags:        []string{"audit"},
	}, s.handleConnectionHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "gateway-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Gateway status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

// ExecuteArgs is the REST shape of operation arguments. Only fields
// relevant to the requested operation need to be set.
type ExecuteArgs struct {
	AccessToken      string   `json:"access_token,omitempty"`
	AccountIDs       []string `json:"account_ids,omitempty"`
	Cursor           string   `json:"cursor,omitempty"`
	UserID           string   `json:"user_id,omitempty"`
	RedirectURI      string   `json:"redirect_uri,omitempty"`
	Products         []string `json:"products,omitempty"`
	PublicToken      string   `json:"public_token,omitempty"`
	WebhookPayload   string   `json:"webhook_payload,omitempty"`
	WebhookSignature string   `json:"webhook_signature,omitempty"`
}

type executeInput struct {
	Body struct {
		Operation         string      `json:"operation" doc:"Logical operation name (get_accounts, sync_transactions, ...)"`
		InstitutionID     string      `json:"institution_id,omitempty" doc:"External institution or crypto network identifier"`
		PreferredProvider string      `json:"preferred_provider,omitempty" doc:"Fallback provider when no mapping exists"`
		Region            string      `json:"region" doc:"Region scoping provider selection"`
		AccountID         string      `json:"account_id" doc:"Account the call acts on behalf of"`
		SpaceID           string      `json:"space_id,omitempty"`
		Args              ExecuteArgs `json:"args,omitempty"`
	}
}

type executeOutput struct {
	Body struct {
		Provider     string `json:"provider"`
		Region       string `json:"region"`
		FailoverUsed bool   `json:"failover_used"`
		Attempts     int    `json:"attempts"`
		ResponseMs   int64  `json:"response_ms"`
		Output       any    `json:"output,omitempty"`
	}
}

type providerHealthInput struct {
	Region string `query:"region" doc:"Filter snapshots to one region"`
}

type providerHealthOutput struct {
	Body struct {
		Providers []health.ProviderHealth `json:"providers"`
	}
}

type connectionHistoryInput struct {
	AccountID string `path:"accountId"`
	Limit     int    `query:"limit" doc:"Maximum records to return (default 100)"`
}

type connectionHistoryOutput struct {
	Body struct {
		Attempts []ConnectionAttemptView `json:"attempts"`
	}
}

// ConnectionAttemptView is the REST shape of one audit record.
type ConnectionAttemptView struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Region       string `json:"region"`
	Operation    string `json:"operation"`
	Outcome      string `json:"outcome"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseMs   int64  `json:"response_ms"`
	Failover     bool   `json:"failover"`
	NextProvider string `json:"next_provider,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type statusOutput struct {
	Body GatewayStatus
}

// --- Handlers ---

func (s *Server) handleExecute(ctx context.Context, input *executeInput) (*executeOutput, error) {
	orch := s.services.Orchestration()

	req := orchestrator.Request{
		Operation:     provider.Operation(input.Body.Operation),
		InstitutionID: input.Body.InstitutionID,
		Preferred:     input.Body.PreferredProvider,
		Region:        input.Body.Region,
		Account: orchestrator.AccountContext{
			AccountID: input.Body.AccountID,
			SpaceID:   input.Body.SpaceID,
		},
		Args: toCallArgs(input.Body.Args),
	}

	result, err := orch.Execute(ctx, req)
	if err != nil {
		return nil, executeError(err)
	}

	out := &executeOutput{}
	out.Body.Provider = result.Provider.Name()
	out.Body.Region = result.Provider.Region()
	out.Body.FailoverUsed = result.FailoverUsed
	out.Body.Attempts = result.Attempts
	out.Body.ResponseMs = result.ResponseTime.Milliseconds()
	out.Body.Output = result.Output
	return out, nil
}

func (s *Server) handleProviderHealth(ctx context.Context, input *providerHealthInput) (*providerHealthOutput, error) {
	snaps, err := s.services.Providers().Snapshot(ctx, input.Region)
	if err != nil {
		slog.Error("internal error", "context", "snapshotting provider health", "error", err)
		return nil, huma.Error500InternalServerError("internal server error")
	}

	out := &providerHealthOutput{}
	out.Body.Providers = snaps
	if out.Body.Providers == nil {
		out.Body.Providers = []health.ProviderHealth{}
	}
	return out, nil
}

func (s *Server) handleConnectionHistory(ctx context.Context, input *connectionHistoryInput) (*connectionHistoryOutput, error) {
	attempts, err := s.services.History().ListByAccount(ctx, input.AccountID, input.Limit)
	if err != nil {
		slog.Error("internal error", "context", "listing connection history", "error", err)
		return nil, huma.Error500InternalServerError("internal server error")
	}

	out := &connectionHistoryOutput{}
	out.Body.Attempts = make([]ConnectionAttemptView, 0, len(attempts))
	for _, a := range attempts {
		out.Body.Attempts = append(out.Body.Attempts, ConnectionAttemptView{
			ID:           a.ID,
			Provider:     a.Provider,
			Region:       a.Region,
			Operation:    a.Operation,
			Outcome:      string(a.Outcome),
			ErrorKind:    a.ErrorKind,
			ErrorCode:    a.ErrorCode,
			ErrorMessage: a.ErrorMessage,
			ResponseMs:   a.ResponseTime.Milliseconds(),
			Failover:     a.Failover,
			NextProvider: a.NextProvider,
			CreatedAt:    a.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	st, err := s.services.Status().Status(ctx)
	if err != nil {
		slog.Error("internal error", "context", "reading gateway status", "error", err)
		return nil, huma.Error500InternalServerError("internal server error")
	}
	return &statusOutput{Body: *st}, nil
}

// executeError maps orchestrator errors to HTTP errors, preserving the
// per-candidate breakdown on exhaustion.
func executeError(err error) error {
	var exhausted *orchestrator.ExhaustedError
	if errors.As(err, &exhausted) {
		details := make([]error, 0, len(exhausted.Report.Candidates))
		for _, c := range exhausted.Report.Candidates {
			if c.Skipped {
				details = append(details, fmt.Errorf("%s@%s: skipped, circuit open", c.Provider, c.Region))
				continue
			}
			details = append(details, fmt.Errorf("%s@%s: %s (%s)", c.Provider, c.Region, c.Message, c.Kind))
		}
		return huma.NewError(http.StatusBadGateway, "all providers exhausted", details...)
	}

	status := aegiserr.HTTPStatus(err)
	if status >= 500 && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		slog.Error("internal error", "context", "executing operation", "error", err)
		return huma.Error500InternalServerError("internal server error")
	}
	return huma.NewError(status, err.Error())
}

// toCallArgs maps the REST args into the adapter call union.
func toCallArgs(a ExecuteArgs) provider.CallArgs {
	return provider.CallArgs{
		Credentials: provider.Credentials{AccessToken: a.AccessToken},
		Scope:       provider.AccountScope{AccountIDs: a.AccountIDs},
		SinceCursor: a.Cursor,
		Link: provider.LinkRequest{
			UserID:      a.UserID,
			RedirectURI: a.RedirectURI,
			Products:    a.Products,
		},
		Exchange:         provider.TokenExchange{PublicToken: a.PublicToken},
		WebhookPayload:   []byte(a.WebhookPayload),
		WebhookSignature: a.WebhookSignature,
	}
}
