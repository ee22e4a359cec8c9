// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package store

import (
	"context"

	"github.com/aegis-fin/aegis/pkg/health"
)

// AttemptStore is the append-only connection attempt log. Writers are
// concurrent; implementations must tolerate that without losing
// records. A write failure here is audit loss, not orchestration
// failure; callers log it and carry on.
type AttemptStore interface {
	Append(ctx context.Context, attempt *ConnectionAttempt) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*ConnectionAttempt, error)
	Close() error
}

// HealthStore persists provider health snapshots so dashboards survive
// process restarts. One row per (provider, region), last write wins.
type HealthStore interface {
	Upsert(ctx context.Context, h health.ProviderHealth) error
	List(ctx context.Context, region string) ([]health.ProviderHealth, error)
	Close() error
}
