// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Compile-time interface check.
var _ store.AttemptStore = (*AttemptStore)(nil)

// AttemptStore implements store.AttemptStore backed by SQLite.
type AttemptStore struct {
	db *sql.DB
}

// NewAttemptStore wraps an open database.
func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Append(ctx context.Context, a *store.ConnectionAttempt) error {
	if a == nil || a.ID == "" {
		return aegiserr.New(aegiserr.CodeStoreInvalidInput, "attempt requires an ID")
	}

	const q = `INSERT INTO connection_attempts
(id, account_id, space_id, provider, region, operation, outcome, error_kind, error_code, error_message, response_ms, failover, next_provider, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		a.ID,
		a.AccountID,
		a.SpaceID,
		a.Provider,
		a.Region,
		a.Operation,
		string(a.Outcome),
		a.ErrorKind,
		a.ErrorCode,
		a.ErrorMessage,
		a.ResponseTime.Milliseconds(),
		boolToInt(a.Failover),
		a.NextProvider,
		formatTime(a.CreatedAt),
	)
	if err != nil {
		return aegiserr.Wrapf(err, aegiserr.CodeStoreDatabaseFailure,
			"appending connection attempt %s", a.ID)
	}
	return nil
}

func (s *AttemptStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*store.ConnectionAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	const q = `SELECT id, account_id, space_id, provider, region, operation, outcome, error_kind, error_code, error_message, response_ms, failover, next_provider, created_at
FROM connection_attempts WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, aegiserr.Wrapf(err, aegiserr.CodeStoreDatabaseFailure,
			"listing attempts for account %s", accountID)
	}
	defer rows.Close()

	var attempts []*store.ConnectionAttempt
	for rows.Next() {
		var a store.ConnectionAttempt
		var outcome, createdAt string
		var responseMs int64
		var failover int
		if err := rows.Scan(
			&a.ID,
			&a.AccountID,
			&a.SpaceID,
			&a.Provider,
			&a.Region,
			&a.Operation,
			&outcome,
			&a.ErrorKind,
			&a.ErrorCode,
			&a.ErrorMessage,
			&responseMs,
			&failover,
			&a.NextProvider,
			&createdAt,
		); err != nil {
			return nil, aegiserr.Wrap(err, aegiserr.CodeStoreDatabaseFailure,
				"scanning attempt row")
		}
		a.Outcome = store.Outcome(outcome)
		a.ResponseTime = time.Duration(responseMs) * time.Millisecond
		a.Failover = failover != 0
		a.CreatedAt = parseTime(createdAt)
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, aegiserr.Wrap(err, aegiserr.CodeStoreDatabaseFailure,
			"iterating attempt rows")
	}
	return attempts, nil
}

// Close closes the underlying database connection.
func (s *AttemptStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
