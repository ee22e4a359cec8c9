// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package orchestrator is the entry point of the resilience layer: it
// resolves the provider candidate order for a logical operation, gates
// each candidate through the circuit breaker, invokes the adapter with
// a bounded timeout, classifies the outcome, and fails over to the
// next candidate on retryable errors. Every attempted call leaves one
// immutable audit record.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-fin/aegis/internal/breaker"
	"github.com/aegis-fin/aegis/internal/healthmon"
	"github.com/aegis-fin/aegis/internal/mapping"
	"github.com/aegis-fin/aegis/internal/provider"
	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// DefaultCallTimeout bounds one candidate attempt when no per-provider
// timeout is configured.
const DefaultCallTimeout = 8 * time.Second

// AccountContext identifies who an Execute call is acting for; it is
// carried verbatim into the audit records.
type AccountContext struct {
	AccountID string
	SpaceID   string
}

// Request is one Execute invocation.
type Request struct {
	Operation provider.Operation
	Args      provider.CallArgs
	Account   AccountContext

	// InstitutionID selects the candidate route from the mapping
	// table. When no mapping exists (or it is empty), Preferred is
	// used as the single candidate and no failover is possible.
	InstitutionID string
	Preferred     string
	Region        string
}

// Deps are the collaborators injected into an Orchestrator. The
// breaker and monitor are shared across all concurrent calls by
// design; the orchestrator itself holds no cross-call state.
type Deps struct {
	Registry   *provider.Registry
	Breaker    *breaker.Breaker
	Monitor    *healthmon.Monitor
	Table      *mapping.Table // optional; nil means preferred-only routing
	Attempts   store.AttemptStore
	Classifier *provider.Classifier

	// Timeouts maps provider name to its per-call timeout; providers
	// not listed use DefaultTimeout.
	Timeouts       map[string]time.Duration
	DefaultTimeout time.Duration

	Logger *slog.Logger
}

// Orchestrator walks provider candidates for logical operations.
type Orchestrator struct {
	registry   *provider.Registry
	breaker    *breaker.Breaker
	monitor    *healthmon.Monitor
	table      *mapping.Table
	attempts   store.AttemptStore
	classifier *provider.Classifier

	timeouts       map[string]time.Duration
	defaultTimeout time.Duration

	logger  *slog.Logger
	nowFunc func() time.Time // for testing
}

// New validates deps and creates an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "registry is required")
	}
	if deps.Breaker == nil {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "breaker is required")
	}
	if deps.Monitor == nil {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "health monitor is required")
	}
	if deps.Attempts == nil {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "attempt store is required")
	}

	classifier := deps.Classifier
	if classifier == nil {
		classifier = provider.NewClassifier(nil)
	}
	defaultTimeout := deps.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultCallTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		registry:       deps.Registry,
		breaker:        deps.Breaker,
		monitor:        deps.Monitor,
		table:          deps.Table,
		attempts:       deps.Attempts,
		classifier:     classifier,
		timeouts:       deps.Timeouts,
		defaultTimeout: defaultTimeout,
		logger:         logger,
		nowFunc:        time.Now,
	}, nil
}

// SetNowFunc overrides the time source (for testing).
func (o *Orchestrator) SetNowFunc(fn func() time.Time) {
	o.nowFunc = fn
}

// Execute walks the candidate providers for req in strict order and
// returns the first successful result. Retryable failures advance to
// the next candidate; non-retryable failures return immediately with
// that single candidate's error. When every candidate failed or was
// skipped, the returned error wraps an *ExhaustedError carrying the
// per-candidate breakdown.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	candidates, err := o.resolveCandidates(req)
	if err != nil {
		return nil, err
	}

	report := FailureReport{Operation: string(req.Operation)}
	attempted := 0

	for i, id := range candidates {
		if !o.breaker.Allow(id) {
			// No network call, no audit record; the candidate stays in
			// future lists so a recovering breaker is picked up at once.
			report.Candidates = append(report.Candidates, CandidateFailure{
				Provider: id.Name(),
				Region:   id.Region(),
				Skipped:  true,
			})
			continue
		}

		adapter, err := o.registry.Get(id.Name())
		if err != nil {
			// Misconfiguration, not a provider fault: nothing was
			// attempted, so neither breaker nor monitor hears about it.
			o.logger.Warn("candidate has no registered adapter",
				"provider", id.String(), "operation", req.Operation)
			report.Candidates = append(report.Candidates, CandidateFailure{
				Provider: id.Name(),
				Region:   id.Region(),
				Kind:     provider.KindProviderUnavailable,
				Message:  "adapter not registered",
			})
			continue
		}

		attempted++
		outcome := o.attempt(ctx, adapter, id, req)
		outcome.failover = attempted > 1
		outcome.next = nextCandidateName(candidates, i)

		if outcome.cancelled {
			outcome.next = ""
			o.writeAttempt(req, id, outcome)
			return nil, aegiserr.Wrap(ctx.Err(), aegiserr.CodeOrchestratorCancelled,
				"execute cancelled mid-attempt",
				aegiserr.FieldProvider(id.Name()),
				aegiserr.FieldOperation(string(req.Operation)))
		}

		// Exactly once per attempted call, never for skipped candidates.
		o.breaker.RecordOutcome(id, outcome.err == nil)
		o.monitor.RecordCall(id, outcome.err == nil, outcome.latency, outcome.errMessage())

		if outcome.err == nil {
			outcome.next = ""
			o.writeAttempt(req, id, outcome)
			return &Result{
				Output:       outcome.output,
				Provider:     id,
				FailoverUsed: attempted > 1,
				Attempts:     attempted,
				ResponseTime: outcome.latency,
			}, nil
		}

		kind := o.classifier.Classify(id.Name(), outcome.err)
		outcome.kind = kind
		if !kind.Retryable() {
			outcome.next = ""
		}
		o.writeAttempt(req, id, outcome)

		report.Candidates = append(report.Candidates, CandidateFailure{
			Provider: id.Name(),
			Region:   id.Region(),
			Kind:     kind,
			Code:     outcome.errCode(),
			Message:  outcome.errMessage(),
		})

		if !kind.Retryable() {
			// Another provider cannot fix revoked credentials or bad
			// input; surface this candidate's failure untouched.
			return nil, aegiserr.Wrap(outcome.err, aegiserr.CodeProviderUpstreamFailure,
				"provider call failed with non-retryable error",
				aegiserr.FieldProvider(id.Name()),
				aegiserr.FieldOperation(string(req.Operation)),
				aegiserr.Field("kind", string(kind)))
		}

		o.logger.Info("provider attempt failed, trying next candidate",
			"provider", id.String(),
			"operation", req.Operation,
			"kind", kind,
			"remaining", len(candidates)-i-1)
	}

	return nil, aegiserr.Wrap(&ExhaustedError{Report: report},
		aegiserr.CodeOrchestratorExhausted,
		"all providers exhausted",
		aegiserr.FieldOperation(string(req.Operation)),
		aegiserr.FieldRegion(req.Region))
}

// attemptOutcome is the bookkeeping for one candidate call.
type attemptOutcome struct {
	output    any
	err       error
	kind      provider.Kind
	latency   time.Duration
	timedOut  bool
	cancelled bool
	failover  bool
	next      string
}

func (a *attemptOutcome) errMessage() string {
	if a.err == nil {
		return ""
	}
	return a.err.Error()
}

func (a *attemptOutcome) errCode() string {
	var callErr *provider.CallError
	if errors.As(a.err, &callErr) {
		return callErr.Code
	}
	return ""
}

// attempt invokes one adapter operation under the candidate's timeout.
func (o *Orchestrator) attempt(ctx context.Context, adapter provider.Adapter, id provider.Identity, req Request) attemptOutcome {
	timeout := o.defaultTimeout
	if t, ok := o.timeouts[id.Name()]; ok && t > 0 {
		timeout = t
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.nowFunc()
	out, err := provider.Call(callCtx, adapter, req.Operation, req.Region, req.Args)
	latency := o.nowFunc().Sub(start)

	outcome := attemptOutcome{output: out, err: err, latency: latency}
	if err != nil {
		// Parent cancellation aborts the whole sequence; the per-call
		// deadline firing is an ordinary retryable timeout.
		if ctx.Err() != nil {
			outcome.cancelled = true
		} else if errors.Is(err, context.DeadlineExceeded) {
			outcome.timedOut = true
		}
	}
	return outcome
}

// writeAttempt appends the audit record for one attempted call. Audit
// is best-effort relative to the primary operation: failures are
// logged, never returned.
func (o *Orchestrator) writeAttempt(req Request, id provider.Identity, out attemptOutcome) {
	rec := &store.ConnectionAttempt{
		ID:           uuid.NewString(),
		AccountID:    req.Account.AccountID,
		SpaceID:      req.Account.SpaceID,
		Provider:     id.Name(),
		Region:       id.Region(),
		Operation:    string(req.Operation),
		Outcome:      store.OutcomeSuccess,
		ResponseTime: out.latency,
		Failover:     out.failover,
		NextProvider: out.next,
		CreatedAt:    o.nowFunc(),
	}

	switch {
	case out.cancelled:
		// The caller hung up; no error kind, this says nothing about
		// the provider.
		rec.Outcome = store.OutcomeCancelled
		rec.ErrorMessage = out.errMessage()
	case out.err != nil:
		rec.Outcome = store.OutcomeFailure
		if out.timedOut {
			rec.Outcome = store.OutcomeTimeout
		}
		rec.ErrorKind = string(out.kind)
		rec.ErrorCode = out.errCode()
		rec.ErrorMessage = out.errMessage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.attempts.Append(ctx, rec); err != nil {
		o.logger.Error("writing connection attempt failed",
			"provider", id.String(),
			"operation", req.Operation,
			"error", err)
	}
}

// resolveCandidates builds the strict candidate order for a request.
func (o *Orchestrator) resolveCandidates(req Request) ([]provider.Identity, error) {
	if !req.Operation.Known() {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid,
			"unknown operation: "+string(req.Operation),
			aegiserr.FieldOperation(string(req.Operation)))
	}

	if o.table != nil && req.InstitutionID != "" {
		if route, ok := o.table.Resolve(req.InstitutionID, req.Region); ok {
			return route.Candidates(), nil
		}
	}

	if req.Preferred == "" {
		return nil, aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid,
			"no mapping for institution and no preferred provider given",
			aegiserr.FieldInstitution(req.InstitutionID),
			aegiserr.FieldRegion(req.Region))
	}

	id, err := provider.NewIdentity(req.Preferred, req.Region)
	if err != nil {
		return nil, aegiserr.Wrap(err, aegiserr.CodeOrchestratorRequestInvalid,
			"invalid preferred provider")
	}
	return []provider.Identity{id}, nil
}

// nextCandidateName returns the name of the candidate after index i,
// or empty when i is the last.
func nextCandidateName(candidates []provider.Identity, i int) string {
	if i+1 < len(candidates) {
		return candidates[i+1].Name()
	}
	return ""
}
