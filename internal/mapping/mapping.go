// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

// Package mapping resolves an external institution (or crypto network)
// identifier to an ordered provider candidate list per region. The
// table is loaded at startup and immutable during orchestration, so
// reads need no locking.
package mapping

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Route is one institution's resolved candidate order: the primary
// provider followed by backups in failover priority order. Open
// circuit breakers are not filtered here; a breaker recovering
// mid-list must be picked up on the very next call.
type Route struct {
	Primary provider.Identity
	Backups []provider.Identity
}

// Candidates returns primary + backups as one ordered slice.
func (r Route) Candidates() []provider.Identity {
	out := make([]provider.Identity, 0, 1+len(r.Backups))
	out = append(out, r.Primary)
	out = append(out, r.Backups...)
	return out
}

// Entry is the YAML shape of one mapping row.
type Entry struct {
	InstitutionID string   `yaml:"institution"`
	Region        string   `yaml:"region"`
	Primary       string   `yaml:"primary"`
	Backups       []string `yaml:"backups"`
}

type key struct {
	institution string
	region      string
}

// Table is the immutable institution → providers lookup.
type Table struct {
	routes map[key]Route
}

// New builds and validates a Table from entries.
func New(entries []Entry) (*Table, error) {
	routes := make(map[key]Route, len(entries))

	for _, e := range entries {
		inst := strings.ToLower(strings.TrimSpace(e.InstitutionID))
		if inst == "" {
			return nil, aegiserr.New(aegiserr.CodeMappingTableInvalid,
				"mapping entry missing institution id")
		}

		primary, err := provider.NewIdentity(e.Primary, e.Region)
		if err != nil {
			return nil, aegiserr.Wrapf(err, aegiserr.CodeMappingTableInvalid,
				"mapping for institution %s: invalid primary", inst)
		}

		backups := make([]provider.Identity, 0, len(e.Backups))
		for _, b := range e.Backups {
			id, err := provider.NewIdentity(b, e.Region)
			if err != nil {
				return nil, aegiserr.Wrapf(err, aegiserr.CodeMappingTableInvalid,
					"mapping for institution %s: invalid backup", inst)
			}
			if id == primary {
				return nil, aegiserr.New(aegiserr.CodeMappingTableInvalid,
					"mapping for institution "+inst+": primary must not appear in backups",
					aegiserr.FieldInstitution(inst),
					aegiserr.FieldProvider(id.Name()))
			}
			backups = append(backups, id)
		}

		k := key{institution: inst, region: primary.Region()}
		if _, exists := routes[k]; exists {
			return nil, aegiserr.New(aegiserr.CodeMappingTableInvalid,
				"duplicate mapping for institution "+inst+" in region "+primary.Region(),
				aegiserr.FieldInstitution(inst))
		}
		routes[k] = Route{Primary: primary, Backups: backups}
	}

	return &Table{routes: routes}, nil
}

// Load reads a YAML mapping table from path.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, aegiserr.Wrapf(err, aegiserr.CodeMappingLoadFailure,
			"reading mapping table %s", path)
	}

	var doc struct {
		Mappings []Entry `yaml:"mappings"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, aegiserr.Wrapf(err, aegiserr.CodeMappingLoadFailure,
			"parsing mapping table %s", path)
	}

	return New(doc.Mappings)
}

// Resolve returns the candidate route for (institutionID, region).
// The second return is false when no mapping exists; the caller then
// falls back to its preferred provider as a single candidate.
func (t *Table) Resolve(institutionID, region string) (Route, bool) {
	k := key{
		institution: strings.ToLower(strings.TrimSpace(institutionID)),
		region:      strings.ToLower(strings.TrimSpace(region)),
	}
	r, ok := t.routes[k]
	return r, ok
}

// Len returns the number of mapping rows.
func (t *Table) Len() int { return len(t.routes) }
