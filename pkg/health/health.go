// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package health

import "time"

// Status is the coarse health classification of a provider in a region.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// ProviderHealth is a point-in-time snapshot of a provider's rolling-window
// health for monitoring and operator visibility. All fields are safe to
// serialize to JSON; none reference live monitor state.
type ProviderHealth struct {
	Provider        string     `json:"provider"`
	Region          string     `json:"region"`
	Status          Status     `json:"status"`
	ErrorRate       float64    `json:"error_rate"`
	AvgResponseMs   float64    `json:"avg_response_ms"`
	SuccessCount    int64      `json:"success_count"`
	FailureCount    int64      `json:"failure_count"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt   *time.Time `json:"last_failure_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CircuitOpen     bool       `json:"circuit_open"`
	WindowStartedAt time.Time  `json:"window_started_at"`
}
