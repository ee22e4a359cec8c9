// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider

import (
	"sort"
	"sync"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Registry maps provider names to Adapter implementations. It is
// populated once at process startup and read from every orchestrated
// call, so lookups take only a read lock.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under the given name. Registering the same
// name twice replaces the previous adapter.
func (r *Registry) Register(name string, a Adapter) error {
	if name == "" {
		return aegiserr.New(aegiserr.CodeProviderIdentityInvalid,
			"registry: adapter name must not be empty")
	}
	if a == nil {
		return aegiserr.New(aegiserr.CodeProviderIdentityInvalid,
			"registry: adapter must not be nil",
			aegiserr.FieldProvider(name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
	return nil
}

// Get retrieves an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, aegiserr.New(
			aegiserr.CodeProviderNotFound,
			"provider not registered: "+name,
			aegiserr.FieldProvider(name),
		)
	}
	return a, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close shuts down all registered adapters.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, a := range r.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return aegiserr.Join(errs...)
	}
	return nil
}
