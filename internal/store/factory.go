// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package store

import (
	"sync"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Config selects and parameterizes the storage backend.
type Config struct {
	// Backend names a registered backend; empty defaults to "sqlite".
	Backend string
	// Path is the backend-specific data location (database file for
	// sqlite, ignored by memory).
	Path string
}

// Factory creates the attempt and health stores for a backend.
type Factory func(cfg Config) (AttemptStore, HealthStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

func init() {
	RegisterBackend("memory", func(Config) (AttemptStore, HealthStore, error) {
		return NewMemoryAttemptStore(), NewMemoryHealthStore(), nil
	})
}

// New creates the stores for the configured backend.
func New(cfg Config) (AttemptStore, HealthStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, nil, aegiserr.Errorf(aegiserr.CodeStoreBackendUnsupported,
			"unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
