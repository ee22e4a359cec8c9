// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package server

import (
	"context"

	"github.com/aegis-fin/aegis/internal/orchestrator"
	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	orchestration OrchestrationService
	providers     ProviderHealthService
	history       HistoryService
	status        StatusService
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(orch OrchestrationService, providers ProviderHealthService, history HistoryService, status StatusService) (*Services, error) {
	if orch == nil {
		return nil, aegiserr.New(aegiserr.CodeServerConfigInvalid, "orchestration service is required")
	}
	if providers == nil {
		return nil, aegiserr.New(aegiserr.CodeServerConfigInvalid, "provider health service is required")
	}
	if history == nil {
		return nil, aegiserr.New(aegiserr.CodeServerConfigInvalid, "history service is required")
	}
	if status == nil {
		return nil, aegiserr.New(aegiserr.CodeServerConfigInvalid, "status service is required")
	}
	return &Services{
		orchestration: orch,
		providers:     providers,
		history:       history,
		status:        status,
	}, nil
}

// Orchestration returns the orchestration service.
func (s *Services) Orchestration() OrchestrationService { return s.orchestration }

// Providers returns the provider health service.
func (s *Services) Providers() ProviderHealthService { return s.providers }

// History returns the audit history service.
func (s *Services) History() HistoryService { return s.history }

// Status returns the gateway status service.
func (s *Services) Status() StatusService { return s.status }

// OrchestrationService runs logical operations through the failover
// engine on behalf of REST callers.
type OrchestrationService interface {
	Execute(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// ProviderHealthService provides provider health snapshots for REST handlers.
type ProviderHealthService interface {
	Snapshot(ctx context.Context, region string) ([]health.ProviderHealth, error)
}

// HistoryService provides read-only audit queries for REST handlers.
type HistoryService interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*store.ConnectionAttempt, error)
}

// StatusService reports gateway-level runtime information.
type StatusService interface {
	Status(ctx context.Context) (*GatewayStatus, error)
}

// GatewayStatus is the REST shape of the gateway status endpoint.
type GatewayStatus struct {
	Version       string   `json:"version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Providers     []string `json:"providers"`
	Mappings      int      `json:"mappings"`
	Backend       string   `json:"backend"`
}
