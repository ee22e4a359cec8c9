// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package orchestrator

import (
	"strings"
	"time"

	"github.com/aegis-fin/aegis/internal/provider"
)

// Result is the outcome of a successful Execute call. Exactly one
// candidate's successful attempt produced Output; no candidate after
// it was tried.
type Result struct {
	// Output is the adapter operation's return value ([]ProviderAccount,
	// *SyncResult, etc. depending on the operation).
	Output any

	Provider provider.Identity

	// FailoverUsed is true when the succeeding candidate was not the
	// first one attempted. Intended for analytics, not user-facing
	// error messages.
	FailoverUsed bool

	// Attempts counts candidates actually called (skips excluded).
	Attempts int

	ResponseTime time.Duration
}

// CandidateFailure describes why one candidate did not produce a
// result: either its breaker rejected the call (Skipped, no network
// call made) or the call was attempted and failed.
type CandidateFailure struct {
	Provider string        `json:"provider"`
	Region   string        `json:"region"`
	Skipped  bool          `json:"skipped"`
	Kind     provider.Kind `json:"kind,omitempty"`
	Code     string        `json:"code,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// FailureReport is the per-candidate breakdown returned when every
// candidate failed or was skipped. Callers get the full picture for
// diagnostics but should not immediately retry; the circuit breaker
// already encodes when retrying makes sense.
type FailureReport struct {
	Operation  string             `json:"operation"`
	Candidates []CandidateFailure `json:"candidates"`
}

// ExhaustedError carries the FailureReport through the error chain so
// callers can recover it with errors.As.
type ExhaustedError struct {
	Report FailureReport
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all providers exhausted for ")
	b.WriteString(e.Report.Operation)
	for _, c := range e.Report.Candidates {
		b.WriteString("; ")
		b.WriteString(c.Provider)
		b.WriteString("@")
		b.WriteString(c.Region)
		if c.Skipped {
			b.WriteString(" skipped (circuit open)")
			continue
		}
		b.WriteString(" failed (")
		b.WriteString(string(c.Kind))
		b.WriteString(")")
	}
	return b.String()
}
