// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package store

import "time"

// Outcome is the terminal result of one candidate attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// ConnectionAttempt is one immutable audit record: a single candidate
// provider tried for a single logical operation. Records are created
// once per attempted call, never mutated, never deleted. Candidates
// skipped by an open circuit breaker produce no record; only calls
// that actually went out are logged.
type ConnectionAttempt struct {
	ID        string
	AccountID string
	SpaceID   string

	Provider  string
	Region    string
	Operation string

	Outcome      Outcome
	ErrorKind    string
	ErrorCode    string
	ErrorMessage string

	ResponseTime time.Duration

	// Failover is true for every attempted candidate after the first
	// one actually tried (breaker-skipped candidates don't count).
	Failover bool
	// NextProvider names the candidate tried after this one failed,
	// empty on success or when this was the last candidate.
	NextProvider string

	CreatedAt time.Time
}
