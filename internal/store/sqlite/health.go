// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// Compile-time interface check.
var _ store.HealthStore = (*HealthStore)(nil)

// HealthStore implements store.HealthStore backed by SQLite.
type HealthStore struct {
	db *sql.DB
	// ownsDB is true when Close should close the shared connection;
	// when the attempt store shares the handle only one of them does.
	ownsDB bool
}

// NewHealthStore wraps an open database.
func NewHealthStore(db *sql.DB, ownsDB bool) *HealthStore {
	return &HealthStore{db: db, ownsDB: ownsDB}
}

func (s *HealthStore) Upsert(ctx context.Context, h health.ProviderHealth) error {
	if h.Provider == "" || h.Region == "" {
		return aegiserr.New(aegiserr.CodeStoreInvalidInput,
			"health row requires provider and region")
	}

	const q = `INSERT INTO provider_health
(provider, region, status, error_rate, avg_response_ms, success_count, failure_count, last_success_at, last_failure_at, last_error, window_started_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, region) DO UPDATE SET
	status = excluded.status,
	error_rate = excluded.error_rate,
	avg_response_ms = excluded.avg_response_ms,
	success_count = excluded.success_count,
	failure_count = excluded.failure_count,
	last_success_at = excluded.last_success_at,
	last_failure_at = excluded.last_failure_at,
	last_error = excluded.last_error,
	window_started_at = excluded.window_started_at,
	updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		h.Provider,
		h.Region,
		string(h.Status),
		h.ErrorRate,
		h.AvgResponseMs,
		h.SuccessCount,
		h.FailureCount,
		formatTimePtr(h.LastSuccessAt),
		formatTimePtr(h.LastFailureAt),
		h.LastError,
		formatTime(h.WindowStartedAt),
		formatTime(time.Now()),
	)
	if err != nil {
		return aegiserr.Wrapf(err, aegiserr.CodeStoreDatabaseFailure,
			"upserting health for %s@%s", h.Provider, h.Region)
	}
	return nil
}

func (s *HealthStore) List(ctx context.Context, region string) ([]health.ProviderHealth, error) {
	const base = `SELECT provider, region, status, error_rate, avg_response_ms, success_count, failure_count, last_success_at, last_failure_at, last_error, window_started_at
FROM provider_health`

	var (
		rows *sql.Rows
		err  error
	)
	if region == "" {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY provider, region`)
	} else {
		rows, err = s.db.QueryContext(ctx, base+` WHERE region = ? ORDER BY provider`, region)
	}
	if err != nil {
		return nil, aegiserr.Wrap(err, aegiserr.CodeStoreDatabaseFailure,
			"listing provider health")
	}
	defer rows.Close()

	var out []health.ProviderHealth
	for rows.Next() {
		var h health.ProviderHealth
		var status, lastSuccess, lastFailure, windowStart string
		if err := rows.Scan(
			&h.Provider,
			&h.Region,
			&status,
			&h.ErrorRate,
			&h.AvgResponseMs,
			&h.SuccessCount,
			&h.FailureCount,
			&lastSuccess,
			&lastFailure,
			&h.LastError,
			&windowStart,
		); err != nil {
			return nil, aegiserr.Wrap(err, aegiserr.CodeStoreDatabaseFailure,
				"scanning health row")
		}
		h.Status = health.Status(status)
		h.WindowStartedAt = parseTime(windowStart)
		if t := parseTime(lastSuccess); !t.IsZero() {
			h.LastSuccessAt = &t
		}
		if t := parseTime(lastFailure); !t.IsZero() {
			h.LastFailureAt = &t
		}
		out = append(out, h)
	}

	return out, rows.Err()
}

// Close closes the database connection when this store owns it.
func (s *HealthStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
