// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package sqlite

import (
	"github.com/aegis-fin/aegis/internal/store"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg store.Config) (store.AttemptStore, store.HealthStore, error) {
		if cfg.Path == "" {
			return nil, nil, aegiserr.New(aegiserr.CodeStoreInvalidInput,
				"sqlite backend requires storage.path")
		}

		db, err := Open(cfg.Path)
		if err != nil {
			return nil, nil, aegiserr.Wrapf(err, aegiserr.CodeStoreDatabaseFailure,
				"opening attempt database %s", cfg.Path)
		}

		// Both stores share one connection; the attempt store owns it.
		return NewAttemptStore(db), NewHealthStore(db, false), nil
	})
}
