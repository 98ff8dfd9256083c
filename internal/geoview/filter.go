// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

package geoview

import (
	"sort"
	"strings"

	"github.com/auditsec/geowatch/internal/models"
)

// Filter holds the UI predicates reducing the full entity set to the
// visible set. Predicates are AND-combined per entity.
//
// A nil Types or Statuses slice means "all active" (the default state);
// an explicitly empty slice matches nothing. Providers follows the
// original semantics instead: an empty set disables the provider
// predicate entirely, and entities without a provider always pass it.
type Filter struct {
	Types     []models.EntityType `json:"types,omitempty"`
	Statuses  []models.Status     `json:"statuses,omitempty"`
	Providers []string            `json:"providers,omitempty"`
	Search    string              `json:"search,omitempty"`
}

// DefaultFilter returns the reset state: all types, all statuses, every
// currently observed provider, no search text.
func DefaultFilter(providers []string) Filter {
	return Filter{
		Types:     append([]models.EntityType(nil), models.AllEntityTypes...),
		Statuses:  append([]models.Status(nil), models.AllStatuses...),
		Providers: append([]string(nil), providers...),
	}
}

// Key returns a canonical string form of the filter, for memoization.
// Component values are escaped so a delimiter inside a value cannot
// collide with the delimiter between values.
func (f Filter) Key() string {
	var b strings.Builder
	for _, t := range f.Types {
		b.WriteString(keyEscape(string(t)))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, s := range f.Statuses {
		b.WriteString(keyEscape(string(s)))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	providers := append([]string(nil), f.Providers...)
	sort.Strings(providers)
	for _, p := range providers {
		b.WriteString(keyEscape(p))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(keyEscape(strings.ToLower(strings.TrimSpace(f.Search))))
	return b.String()
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, "|", `\|`)

func keyEscape(s string) string {
	return keyEscaper.Replace(s)
}

// Visible reduces entities to those matching every filter predicate.
// The input order is preserved; the input slice is never mutated.
func Visible(entities []models.MonitoringEntity, f Filter) []models.MonitoringEntity {
	types := typeSet(f.Types)
	statuses := statusSet(f.Statuses)
	providers := stringSet(f.Providers)
	query := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.MonitoringEntity, 0, len(entities))
	for i := range entities {
		e := &entities[i]
		if types != nil {
			if _, ok := types[e.Type]; !ok {
				continue
			}
		}
		if statuses != nil {
			if _, ok := statuses[e.StatusOrDefault()]; !ok {
				continue
			}
		}
		// Entities with no provider always pass the provider predicate.
		if len(providers) > 0 && e.Provider != "" {
			if _, ok := providers[e.Provider]; !ok {
				continue
			}
		}
		if query != "" && !strings.Contains(searchHaystack(e), query) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// searchHaystack concatenates the case-folded searchable fields.
func searchHaystack(e *models.MonitoringEntity) string {
	parts := []string{e.IPAddress, e.Hostname, e.Provider}
	if e.Location != nil {
		parts = append(parts, e.Location.City, e.Location.Country)
	}
	parts = append(parts, strings.Join(e.Tags, " "))
	return strings.ToLower(strings.Join(parts, " "))
}

func typeSet(types []models.EntityType) map[models.EntityType]struct{} {
	if types == nil {
		return nil
	}
	set := make(map[models.EntityType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

func statusSet(statuses []models.Status) map[models.Status]struct{} {
	if statuses == nil {
		return nil
	}
	set := make(map[models.Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
