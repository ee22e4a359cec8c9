// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aegis-fin/aegis/internal/breaker"
	"github.com/aegis-fin/aegis/internal/config"
	"github.com/aegis-fin/aegis/internal/healthmon"
	"github.com/aegis-fin/aegis/internal/mapping"
	"github.com/aegis-fin/aegis/internal/orchestrator"
	"github.com/aegis-fin/aegis/internal/provider"
	"github.com/aegis-fin/aegis/internal/provider/restadapter"
	"github.com/aegis-fin/aegis/internal/server"
	"github.com/aegis-fin/aegis/internal/store"
	_ "github.com/aegis-fin/aegis/internal/store/sqlite" // register sqlite backend
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// Gateway holds all wired subsystems and manages their lifecycle.
type Gateway struct {
	Server       *server.Server
	Registry     *provider.Registry
	Breaker      *breaker.Breaker
	Monitor      *healthmon.Monitor
	Orchestrator *orchestrator.Orchestrator
	Attempts     store.AttemptStore
	Health       store.HealthStore
	Table        *mapping.Table

	startedAt time.Time
}

// WireGateway creates all subsystems and wires them together.
func WireGateway(_ context.Context, cfg *config.Config) (*Gateway, error) {
	// 1. Storage: audit log and persisted health snapshots.
	storePath, err := resolveStorePath(cfg)
	if err != nil {
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "resolving storage path: %w", err)
	}
	attempts, healthStore, err := store.New(store.Config{
		Backend: cfg.Storage.Backend,
		Path:    storePath,
	})
	if err != nil {
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating stores: %w", err)
	}

	// 2. Circuit breaker shared by all concurrent calls.
	brk, err := breaker.New(breaker.Config{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		SuccessThreshold: cfg.Resilience.SuccessThreshold,
		OpenTimeout:      cfg.Resilience.OpenTimeout(),
	})
	if err != nil {
		_ = attempts.Close()
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating breaker: %w", err)
	}

	// 3. Rolling-window health monitor, flushing snapshots to storage.
	monitor, err := healthmon.New(cfg.Resilience.HealthWindow(), healthmon.WithStore(healthStore))
	if err != nil {
		_ = attempts.Close()
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating health monitor: %w", err)
	}

	// 4. Institution-provider mapping table (optional).
	var table *mapping.Table
	if cfg.Mappings.Path != "" {
		table, err = mapping.Load(cfg.Mappings.Path)
		if err != nil {
			_ = attempts.Close()
			return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "loading mapping table: %w", err)
		}
		slog.Info("loaded institution mappings", "path", cfg.Mappings.Path, "routes", table.Len())
	}

	// 5. Provider registry with configured vendor adapters.
	registry := provider.NewRegistry()
	registerConfiguredAdapters(cfg, registry)

	// 6. Orchestrator.
	orch, err := orchestrator.New(orchestrator.Deps{
		Registry:       registry,
		Breaker:        brk,
		Monitor:        monitor,
		Table:          table,
		Attempts:       attempts,
		Classifier:     provider.NewClassifier(cfg.ClassifierOverrides()),
		Timeouts:       cfg.ProviderTimeouts(),
		DefaultTimeout: cfg.Resilience.DefaultTimeout(),
	})
	if err != nil {
		_ = attempts.Close()
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating orchestrator: %w", err)
	}

	gw := &Gateway{
		Registry:     registry,
		Breaker:      brk,
		Monitor:      monitor,
		Orchestrator: orch,
		Attempts:     attempts,
		Health:       healthStore,
		Table:        table,
		startedAt:    time.Now(),
	}

	// 7. HTTP server with service adapters for the REST endpoints.
	services, err := server.NewServices(
		&orchestrationServiceAdapter{orch: orch},
		&providerHealthServiceAdapter{monitor: monitor, breaker: brk, persisted: healthStore},
		&historyServiceAdapter{attempts: attempts},
		&statusServiceAdapter{gw: gw, backend: cfg.Storage.Backend},
	)
	if err != nil {
		_ = attempts.Close()
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating services: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		_ = attempts.Close()
		return nil, aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(services)
	gw.Server = srv

	return gw, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (gw *Gateway) Start(ctx context.Context) error {
	return gw.Server.Start(ctx)
}

// Close releases all resources held by the gateway.
func (gw *Gateway) Close() error {
	type closer interface{ Close() error }
	closers := []closer{gw.Registry, gw.Attempts, gw.Health}

	var errs []error
	for _, c := range closers {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// resolveStorePath fills in the default sqlite database location
// (~/.local/share/aegis/aegis.db) when storage.path is unset.
func resolveStorePath(cfg *config.Config) (string, error) {
	if cfg.Storage.Path != "" || cfg.Storage.Backend == "memory" {
		return cfg.Storage.Path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "aegis")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "aegis.db"), nil
}

// registerConfiguredAdapters iterates configured providers and registers
// a REST adapter for each. Missing endpoints or API keys are logged and
// skipped; neither is fatal at startup.
func registerConfiguredAdapters(cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		a, err := restadapter.New(restadapter.Config{
			Name:         name,
			Endpoint:     pc.Endpoint,
			APIKey:       pc.APIKey,
			ClientSecret: pc.ClientSecret,
		})
		if err != nil {
			slog.Warn("skipping provider with incomplete config", "provider", name, "error", err)
			continue
		}
		if err := reg.Register(name, a); err != nil {
			slog.Warn("failed to register provider", "provider", name, "error", err)
			continue
		}
		slog.Info("registered provider adapter", "provider", name)
	}
}

// --- Service adapters ---

// orchestrationServiceAdapter bridges the orchestrator to the server's
// OrchestrationService.
type orchestrationServiceAdapter struct {
	orch *orchestrator.Orchestrator
}

func (a *orchestrationServiceAdapter) Execute(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	return a.orch.Execute(ctx, req)
}

// providerHealthServiceAdapter composes the monitor's rolling-window
// snapshots with the live breaker state, backfilled with persisted rows
// for identities the process has not called since it started.
type providerHealthServiceAdapter struct {
	monitor   *healthmon.Monitor
	breaker   *breaker.Breaker
	persisted store.HealthStore
}

func (a *providerHealthServiceAdapter) Snapshot(ctx context.Context, region string) ([]health.ProviderHealth, error) {
	snaps := a.monitor.Snapshot(region)

	live := make(map[string]bool, len(snaps))
	for _, s := range snaps {
		live[s.Provider+"@"+s.Region] = true
	}

	if a.persisted != nil {
		rows, err := a.persisted.List(ctx, region)
		if err != nil {
			slog.Warn("reading persisted provider health failed", "error", err)
		}
		for _, row := range rows {
			if live[row.Provider+"@"+row.Region] {
				continue
			}
			snaps = append(snaps, row)
		}
	}

	for i, s := range snaps {
		id, err := provider.NewIdentity(s.Provider, s.Region)
		if err != nil {
			continue
		}
		snaps[i].CircuitOpen = a.breaker.Open(id)
	}
	return snaps, nil
}

// historyServiceAdapter bridges the attempt store to the server's
// HistoryService.
type historyServiceAdapter struct {
	attempts store.AttemptStore
}

func (a *historyServiceAdapter) ListByAccount(ctx context.Context, accountID string, limit int) ([]*store.ConnectionAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	return a.attempts.ListByAccount(ctx, accountID, limit)
}

// statusServiceAdapter reports gateway-level runtime information.
type statusServiceAdapter struct {
	gw      *Gateway
	backend string
}

func (a *statusServiceAdapter) Status(_ context.Context) (*server.GatewayStatus, error) {
	mappings := 0
	if a.gw.Table != nil {
		mappings = a.gw.Table.Len()
	}
	return &server.GatewayStatus{
		Version:       version,
		UptimeSeconds: int64(time.Since(a.gw.startedAt).Seconds()),
		Providers:     a.gw.Registry.Names(),
		Mappings:      mappings,
		Backend:       a.backend,
	}, nil
}
