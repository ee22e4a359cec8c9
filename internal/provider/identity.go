// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider

import (
	"strings"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Identity is the (provider name, region) pair keying all per-provider
// state: circuit breakers, health counters, and audit records. It is a
// value type; fields are normalized at construction and never mutated.
type Identity struct {
	name   string
	region string
}

// NewIdentity builds a case-normalized Identity. Both parts are required.
func NewIdentity(name, region string) (Identity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	region = strings.ToLower(strings.TrimSpace(region))

	if name == "" {
		return Identity{}, aegiserr.New(aegiserr.CodeProviderIdentityInvalid,
			"provider name must not be empty")
	}
	if region == "" {
		return Identity{}, aegiserr.New(aegiserr.CodeProviderIdentityInvalid,
			"provider region must not be empty",
			aegiserr.FieldProvider(name))
	}

	return Identity{name: name, region: region}, nil
}

// Name returns the provider name component.
func (id Identity) Name() string { return id.name }

// Region returns the region component.
func (id Identity) Region() string { return id.region }

// IsZero reports whether the identity is the uninitialized zero value.
func (id Identity) IsZero() bool { return id.name == "" && id.region == "" }

// String returns the canonical "name@region" form used in logs and audit rows.
func (id Identity) String() string {
	return id.name + "@" + id.region
}
